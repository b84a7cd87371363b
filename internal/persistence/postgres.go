package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS bayesopt_snapshots (
	id           TEXT PRIMARY KEY,
	optimizer_id TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	data         BYTEA NOT NULL
)`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps snapshots in a single table.
type PostgresStore struct {
	db   querier
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and makes sure the table exists.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: pool, pool: pool}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create snapshot table: %w", err)
	}
	return nil
}

// Save inserts or replaces a snapshot.
func (s *PostgresStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO bayesopt_snapshots (id, optimizer_id, created_at, data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			optimizer_id = EXCLUDED.optimizer_id,
			created_at = EXCLUDED.created_at,
			data = EXCLUDED.data`,
		snap.ID, snap.OptimizerID, createdAt, snap.Data)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Load returns the snapshot with the given ID.
func (s *PostgresStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var snap Snapshot
	err := s.db.QueryRow(ctx, `
		SELECT id, optimizer_id, created_at, data
		FROM bayesopt_snapshots WHERE id = $1`, id).
		Scan(&snap.ID, &snap.OptimizerID, &snap.CreatedAt, &snap.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// List returns the metadata of every snapshot, oldest first.
func (s *PostgresStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, optimizer_id, created_at, octet_length(data)
		FROM bayesopt_snapshots ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.OptimizerID, &info.CreatedAt, &info.Size); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return infos, nil
}

// Delete removes the snapshot with the given ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM bayesopt_snapshots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
