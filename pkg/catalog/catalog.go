// Package catalog persists a durable record of compaction and version
// install events to PostgreSQL, so an operator can reconstruct how the
// level stack evolved without replaying the write path.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event describes one compaction or version install.
type Event struct {
	Seq         int64
	Kind        string // "flush", "compaction", "install"
	SrcLevel    int
	DstLevel    int
	RecordsMoved int64
	Duration    time.Duration
	OccurredAt  time.Time
}

// Store persists catalog Events to PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool to databaseURL and ensures the
// catalog schema exists.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_events (
		seq BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		src_level INT NOT NULL,
		dst_level INT NOT NULL,
		records_moved BIGINT NOT NULL,
		duration_ms BIGINT NOT NULL,
		occurred_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_events_kind ON catalog_events(kind);
	CREATE INDEX IF NOT EXISTS idx_catalog_events_dst_level ON catalog_events(dst_level);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Record appends an Event to the catalog.
func (s *Store) Record(ctx context.Context, e Event) error {
	query := `
		INSERT INTO catalog_events (kind, src_level, dst_level, records_moved, duration_ms, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.pool.Exec(ctx, query,
		e.Kind, e.SrcLevel, e.DstLevel, e.RecordsMoved, e.Duration.Milliseconds(), e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record catalog event: %w", err)
	}
	return nil
}

// RecentByLevel returns the most recent events targeting dstLevel, newest first.
func (s *Store) RecentByLevel(ctx context.Context, dstLevel int, limit int) ([]Event, error) {
	query := `
		SELECT seq, kind, src_level, dst_level, records_moved, duration_ms, occurred_at
		FROM catalog_events
		WHERE dst_level = $1
		ORDER BY seq DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, dstLevel, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var durationMS int64
		if err := rows.Scan(&e.Seq, &e.Kind, &e.SrcLevel, &e.DstLevel, &e.RecordsMoved, &durationMS, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog event: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog events: %w", err)
	}
	return events, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
