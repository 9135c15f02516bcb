package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jkubale/namerecall/internal/config"
	_ "github.com/lib/pq"
)

const pingTimeout = 10 * time.Second

// Pool wraps a database/sql pool configured for the pgvector-enabled
// Postgres instance every repository in this package talks to.
type Pool struct {
	db *sql.DB
}

var global struct {
	mu   sync.RWMutex
	pool *Pool
}

// NewPool opens a connection pool and verifies the database is reachable
// before handing it out. Connection limits come from the config; lifetime
// caps keep long-lived CLI sessions from pinning stale connections.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Initialize opens the pool, migrates the schema and installs the result as
// the process-wide pool the serve and people commands share.
func Initialize(cfg *config.DatabaseConfig) error {
	if cfg == nil || cfg.URL == "" {
		return errors.New("database URL is required")
	}

	pool, err := NewPool(cfg)
	if err != nil {
		return err
	}
	if err := pool.Migrate(context.Background()); err != nil {
		pool.Close()
		return fmt.Errorf("run migrations: %w", err)
	}

	SetGlobalPool(pool)
	return nil
}

// SetGlobalPool installs the shared pool instance.
func SetGlobalPool(p *Pool) {
	global.mu.Lock()
	global.pool = p
	global.mu.Unlock()
}

// GetGlobalPool returns the shared pool, or nil before Initialize.
func GetGlobalPool() *Pool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.pool
}

// DB exposes the underlying sql.DB for code that needs it directly,
// such as the migration runner.
func (p *Pool) DB() *sql.DB {
	return p.db
}

func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// QueryRow runs a single-row query against the pool.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query runs a multi-row query against the pool.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// Exec runs a statement that returns no rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	return res, nil
}

// BeginTx opens a transaction on the pool.
func (p *Pool) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return tx, nil
}
