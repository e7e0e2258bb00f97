package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// CacheConfig holds result-cache settings.
type CacheConfig struct {
	TTL  Duration `yaml:"ttl"`
	Size int      `yaml:"size"`
}

// MySQLConfig holds the credentials used by MySQL checks. Both must be set
// for MySQL checks to be attempted at all.
type MySQLConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SpoolConfig holds maintenance-state storage settings.
type SpoolConfig struct {
	Path string `yaml:"path"`
}

// Config is the root application configuration, loaded once at startup.
type Config struct {
	Server            ServerConfig `yaml:"server"`
	Timeout           Duration     `yaml:"timeout"`
	Cache             CacheConfig  `yaml:"cache"`
	HTTPHeadersToCopy []string     `yaml:"http_headers_to_copy"`
	ServiceNameHeader string       `yaml:"service_name_header"`
	MySQL             MySQLConfig  `yaml:"mysql"`
	Spool             SpoolConfig  `yaml:"spool"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Address: ":3333"},
		Timeout: Duration{10 * time.Second},
		Cache:   CacheConfig{TTL: Duration{time.Second}, Size: 1024},
		Spool:   SpoolConfig{Path: "spool.db"},
	}
}

// Load reads, parses, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Unmarshal into a raw intermediate so duration errors surface with the
	// offending field instead of a generic YAML error.
	type rawCache struct {
		TTL  string `yaml:"ttl"`
		Size int    `yaml:"size"`
	}
	type rawConfig struct {
		Server            ServerConfig `yaml:"server"`
		Timeout           string       `yaml:"timeout"`
		Cache             rawCache     `yaml:"cache"`
		HTTPHeadersToCopy []string     `yaml:"http_headers_to_copy"`
		ServiceNameHeader string       `yaml:"service_name_header"`
		MySQL             MySQLConfig  `yaml:"mysql"`
		Spool             SpoolConfig  `yaml:"spool"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := Default()
	cfg.HTTPHeadersToCopy = raw.HTTPHeadersToCopy
	cfg.ServiceNameHeader = raw.ServiceNameHeader
	cfg.MySQL = raw.MySQL

	if raw.Server.Address != "" {
		cfg.Server.Address = raw.Server.Address
	}
	if raw.Spool.Path != "" {
		cfg.Spool.Path = raw.Spool.Path
	}

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err)
		}
		cfg.Timeout = Duration{d}
	}
	if raw.Cache.TTL != "" {
		d, err := time.ParseDuration(raw.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid cache ttl %q: %w", raw.Cache.TTL, err)
		}
		cfg.Cache.TTL = Duration{d}
	}
	if raw.Cache.Size != 0 {
		cfg.Cache.Size = raw.Cache.Size
	}

	if cfg.Timeout.Duration <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	if cfg.Cache.TTL.Duration <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	if cfg.Cache.Size <= 0 {
		return nil, fmt.Errorf("cache size must be positive")
	}
	if (cfg.MySQL.Username == "") != (cfg.MySQL.Password == "") {
		return nil, fmt.Errorf("mysql username and password must be set together")
	}

	return cfg, nil
}
