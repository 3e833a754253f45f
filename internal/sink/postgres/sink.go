// Package postgres appends records to a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/chart-scraper/internal/clock/system"
	"github.com/JakeFAU/chart-scraper/internal/metrics"
	"github.com/JakeFAU/chart-scraper/internal/scraper"
)

// Name is the metrics label for this sink.
const Name = "postgres"

const defaultTable = "movies"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for record rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Sink writes record rows into Postgres.
type Sink struct {
	pool   execCloser
	table  string
	clock  scraper.Clock
	logger *zap.Logger
}

// New creates a Postgres-backed Sink using the provided config.
func New(ctx context.Context, cfg Config, clock scraper.Clock, logger *zap.Logger) (*Sink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sink.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newSink(pool, table, clock, logger), nil
}

// NewWithPool constructs a sink from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string, clock scraper.Clock, logger *zap.Logger) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	table, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return newSink(pool, table, clock, logger), nil
}

func newSink(pool execCloser, table string, clock scraper.Clock, logger *zap.Logger) *Sink {
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Sink{pool: pool, table: table, clock: clock, logger: logger}
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Table returns the destination table name.
func (s *Sink) Table() string {
	return s.table
}

// Close releases the underlying pool resources.
func (s *Sink) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Append creates the table if needed, then inserts one row per record in
// order. Rows are not wrapped in a transaction; earlier inserts survive a
// later failure.
func (s *Sink) Append(ctx context.Context, records []scraper.Record) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	if _, err := s.pool.Exec(ctx, s.createTableSQL()); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}

	runID := scraper.RunIDFromContext(ctx)
	query := s.insertSQL()
	written := 0
	defer func() { metrics.ObserveRecordsWritten(Name, written) }()
	for i, rec := range records {
		args := []any{
			rec.Title,
			rec.Date,
			rec.Rating,
			rec.Plot,
			runID,
			s.clock.Now().UTC(),
		}
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
		written++
		s.logger.Info("Saved",
			zap.String("title", rec.Title),
			zap.String("date", rec.Date),
			zap.String("rating", rec.Rating),
		)
	}
	return nil
}

func (s *Sink) createTableSQL() string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	title        TEXT NOT NULL,
	release_date TEXT NOT NULL,
	rating       TEXT NOT NULL,
	plot         TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	scraped_at   TIMESTAMPTZ NOT NULL
)`, s.table)
}

func (s *Sink) insertSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (
	title,
	release_date,
	rating,
	plot,
	run_id,
	scraped_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)`, s.table)
}
