package checker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hazz-dev/healthd/internal/config"
	"github.com/hazz-dev/healthd/internal/metrics"
)

// Checker performs a single health check against a local port.
// Implementations never return errors; every failure mode is folded
// into the Result.
type Checker interface {
	Probe(ctx context.Context, req Request) Result
}

// SpoolReader reports the administrative up/down state of a service.
// It is read once per spool check, never cached.
type SpoolReader interface {
	IsUp(ctx context.Context, service string, port uint16) (bool, SpoolInfo, error)
}

// SpoolInfo is the metadata attached to a maintenance-state entry.
type SpoolInfo struct {
	Service    string
	Reason     string
	Creation   *time.Time
	Expiration *time.Time
}

// Dispatcher routes requests to the protocol checkers. All cacheable
// protocols go through a shared result cache; spool checks are always live.
type Dispatcher struct {
	timeout time.Duration
	cache   *Cache
	spool   Checker
	copy    []string
	logger  *slog.Logger
	known   map[Protocol]bool
}

// New builds a Dispatcher from the loaded configuration. store backs the
// spool checker and dial constructs MySQL handshake clients; pass nil logger
// to use the default.
func New(cfg *config.Config, store SpoolReader, dial MySQLDialer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	httpc := newHTTPChecker("http", cfg.ServiceNameHeader)
	httpsc := newHTTPChecker("https", cfg.ServiceNameHeader)
	byProtocol := map[Protocol]Checker{
		ProtocolHTTP:  httpc,
		ProtocolHTTPS: httpsc,
		ProtocolTCP:   &tcpChecker{},
		ProtocolSMTP:  &smtpChecker{},
		ProtocolMySQL: newMySQLChecker(cfg.MySQL.Username, cfg.MySQL.Password, dial),
	}

	known := map[Protocol]bool{ProtocolSpool: true}
	for p := range byProtocol {
		known[p] = true
	}

	return &Dispatcher{
		timeout: cfg.Timeout.Duration,
		cache:   NewCache(route(byProtocol), cfg.Cache.TTL.Duration, cfg.Cache.Size, cfg.Timeout.Duration),
		spool:   &spoolChecker{store: store},
		copy:    cfg.HTTPHeadersToCopy,
		logger:  logger,
		known:   known,
	}
}

// route dispatches by protocol; the Dispatcher guarantees the protocol is known.
type route map[Protocol]Checker

func (r route) Probe(ctx context.Context, req Request) Result {
	return r[req.Protocol].Probe(ctx, req)
}

// Check runs one health check. It never panics and completes within the
// configured timeout plus scheduling slack; unknown protocols yield a 500.
func (d *Dispatcher) Check(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("check panicked", "service", req.Service, "protocol", req.Protocol, "panic", r)
			res = Result{CodeUnhandled, fmt.Sprintf("Unhandled exception %v", r)}
		}
		metrics.ChecksTotal.WithLabelValues(string(req.Protocol), metrics.Class(res.Code)).Inc()
		metrics.CheckDuration.WithLabelValues(string(req.Protocol)).Observe(time.Since(start).Seconds())
	}()

	if !d.known[req.Protocol] {
		return Result{http.StatusInternalServerError, fmt.Sprintf("unknown protocol %q", req.Protocol)}
	}
	req = d.normalize(req)

	if req.Protocol == ProtocolSpool {
		// Maintenance state must reflect the latest administrative action,
		// so spool checks bypass the cache entirely.
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		return d.spool.Probe(ctx, req)
	}
	return d.cache.Probe(ctx, req)
}

// normalize canonicalizes the parts of the request that feed the cache key.
// Non-HTTP protocols carry no path, query or headers; HTTP-family requests
// get a leading slash and a header map reduced to the configured allow-list.
func (d *Dispatcher) normalize(req Request) Request {
	if req.Protocol != ProtocolHTTP && req.Protocol != ProtocolHTTPS {
		req.Path, req.Query, req.Headers = "", "", nil
		return req
	}
	if len(req.Path) == 0 || req.Path[0] != '/' {
		req.Path = "/" + req.Path
	}
	filtered := make(map[string]string, len(d.copy))
	for _, name := range d.copy {
		canon := http.CanonicalHeaderKey(name)
		for k, v := range req.Headers {
			if http.CanonicalHeaderKey(k) == canon {
				filtered[canon] = v
			}
		}
	}
	req.Headers = filtered
	return req
}
