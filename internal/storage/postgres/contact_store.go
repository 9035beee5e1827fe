// Package postgres persists contacts to Postgres.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/contact-crawler/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ContactStoreConfig controls the Postgres connection pool used for contacts.
type ContactStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ContactStore writes contact rows keyed by email. The first run to see an
// address owns the row; later sightings are ignored.
type ContactStore struct {
	pool  execCloser
	table string
}

// NewContactStore connects a pool using the provided config.
func NewContactStore(ctx context.Context, cfg ContactStoreConfig) (*ContactStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ContactStore{pool: pool, table: table}, nil
}

// NewContactStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewContactStoreWithPool(pool execCloser, table string) (*ContactStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &ContactStore{pool: pool, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = "contacts"
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *ContactStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the contacts table if it does not exist.
func (s *ContactStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	email         TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	country       TEXT NOT NULL,
	run_id        TEXT NOT NULL,
	first_seen_at TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create contacts table: %w", err)
	}
	return nil
}

// SaveContacts inserts records and returns how many were new.
func (s *ContactStore) SaveContacts(ctx context.Context, runID string, records []scraper.CompanyRecord, seenAt time.Time) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("contact store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (email, name, country, run_id, first_seen_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (email) DO NOTHING`, s.table)

	inserted := 0
	for _, rec := range records {
		if rec.Email == "" {
			continue
		}
		tag, err := s.pool.Exec(ctx, query, rec.Email, rec.Name, rec.Country, runID, seenAt)
		if err != nil {
			return inserted, fmt.Errorf("insert contact %s: %w", rec.Email, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
