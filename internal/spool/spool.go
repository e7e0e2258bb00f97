// Package spool stores administrative maintenance state: operators mark a
// service down (optionally with a reason and an expiry) and back up, and the
// spool checker reads that state on every check.
package spool

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazz-dev/healthd/internal/checker"
	_ "modernc.org/sqlite"
)

// AllServices marks every service on the host down when used as the service name.
const AllServices = "all"

// AllPorts marks every port of a service down when used as the port.
const AllPorts uint16 = 0

const schema = `
CREATE TABLE IF NOT EXISTS spool (
    service    TEXT    NOT NULL,
    port       INTEGER NOT NULL DEFAULT 0,
    reason     TEXT    NOT NULL DEFAULT '',
    created_at TEXT    NOT NULL,
    expires_at TEXT,
    PRIMARY KEY (service, port)
);
`

// Entry is one stored down-state record.
type Entry struct {
	Service   string
	Port      uint16
	Reason    string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Store wraps the SQLite database holding spool state.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the spool database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Down marks service/port administratively down. Port 0 covers every port of
// the service; service "all" covers the whole host. A second Down for the
// same key replaces the earlier record.
func (s *Store) Down(ctx context.Context, service string, port uint16, reason string, expires *time.Time) error {
	var expiresAt any
	if expires != nil {
		expiresAt = expires.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO spool (service, port, reason, created_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(service, port) DO UPDATE SET reason=excluded.reason, created_at=excluded.created_at, expires_at=excluded.expires_at`,
		service, port, reason, time.Now().UTC().Format(time.RFC3339Nano), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("marking %q down: %w", service, err)
	}
	return nil
}

// Up clears the down state for service/port.
func (s *Store) Up(ctx context.Context, service string, port uint16) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM spool WHERE service = ? AND port = ?`, service, port); err != nil {
		return fmt.Errorf("marking %q up: %w", service, err)
	}
	return nil
}

// IsUp reports whether service/port is administratively up. A service is down
// when a live record matches it exactly, matches its port-0 wildcard, or
// matches the host-wide "all" record. Expired records count as up and are
// purged as they are encountered.
func (s *Store) IsUp(ctx context.Context, service string, port uint16) (bool, checker.SpoolInfo, error) {
	for _, key := range []struct {
		service string
		port    uint16
	}{
		{service, port},
		{service, AllPorts},
		{AllServices, AllPorts},
	} {
		e, err := s.lookup(ctx, key.service, key.port)
		if err != nil {
			return false, checker.SpoolInfo{}, err
		}
		if e == nil {
			continue
		}
		if e.ExpiresAt != nil && time.Now().After(*e.ExpiresAt) {
			if err := s.Up(ctx, e.Service, e.Port); err != nil {
				return false, checker.SpoolInfo{}, err
			}
			continue
		}
		created := e.CreatedAt
		return false, checker.SpoolInfo{
			Service:    e.Service,
			Reason:     e.Reason,
			Creation:   &created,
			Expiration: e.ExpiresAt,
		}, nil
	}
	return true, checker.SpoolInfo{Service: service}, nil
}

// List returns every stored down record, expired ones included, ordered by service.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT service, port, reason, created_at, expires_at FROM spool ORDER BY service, port`)
	if err != nil {
		return nil, fmt.Errorf("listing spool entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning spool row: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *Store) lookup(ctx context.Context, service string, port uint16) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT service, port, reason, created_at, expires_at FROM spool WHERE service = ? AND port = ?`,
		service, port,
	)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying spool state for %q: %w", service, err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var createdAt string
	var expiresAt sql.NullString
	if err := row.Scan(&e.Service, &e.Port, &e.Reason, &createdAt, &expiresAt); err != nil {
		return nil, err
	}
	t, err := parseStoredTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	if expiresAt.Valid {
		t, err := parseStoredTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing expires_at %q: %w", expiresAt.String, err)
		}
		e.ExpiresAt = &t
	}
	return &e, nil
}

func parseStoredTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Fallback to RFC3339 without sub-second precision.
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}
