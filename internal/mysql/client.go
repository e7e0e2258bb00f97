// Package mysql implements the MySQL handshake collaborator on top of the
// standard go-sql-driver. Only connection-level health is of interest here;
// no queries are ever issued.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// Client performs a single authentication handshake against a local MySQL
// server and reports how it went.
type Client struct {
	port uint16
	db   *sql.DB
}

// NewClient returns a Client for 127.0.0.1:port.
func NewClient(port uint16) *Client {
	return &Client{port: port}
}

// Connect opens a connection and completes the authentication handshake.
// ok is false when the server answers but rejects the handshake; err carries
// transport-level failures (including deadline expiry) unchanged.
func (c *Client) Connect(ctx context.Context, username, password string) (ok bool, detail string, err error) {
	dsn := fmt.Sprintf("%s:%s@tcp(127.0.0.1:%d)/", username, password, c.port)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return false, "", fmt.Errorf("opening mysql handle: %w", err)
	}
	c.db = db

	// One handshake, no pooled retries.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		if ctx.Err() != nil {
			return false, "", ctx.Err()
		}
		return false, err.Error(), nil
	}
	return true, "OK", nil
}

// Quit releases the connection. Safe to call even when Connect failed.
func (c *Client) Quit() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
