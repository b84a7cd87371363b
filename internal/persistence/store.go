// Package persistence stores optimizer snapshots outside the process so an
// optimizer can be restored after a restart or moved between servers.
package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
)

// ErrSnapshotNotFound is matched by every NotFoundError. It also matches
// errors.ErrNotFound, so RPC layers report it as an unknown ID.
var ErrSnapshotNotFound = fmt.Errorf("snapshot %w", apperrors.ErrNotFound)

// NotFoundError reports a snapshot ID the store does not hold.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("snapshot %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrSnapshotNotFound }

// Snapshot is an encoded optimizer state together with its metadata. Data
// is opaque to the store.
type Snapshot struct {
	ID          string    `msgpack:"id"`
	OptimizerID string    `msgpack:"optimizer_id"`
	CreatedAt   time.Time `msgpack:"created_at"`
	Data        []byte    `msgpack:"data"`
}

// Info returns the snapshot metadata.
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		ID:          s.ID,
		OptimizerID: s.OptimizerID,
		CreatedAt:   s.CreatedAt,
		Size:        len(s.Data),
	}
}

// SnapshotInfo describes a stored snapshot without its data.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	OptimizerID string    `json:"optimizer_id"`
	CreatedAt   time.Time `json:"created_at"`
	Size        int       `json:"size"`
}

// SnapshotStore persists optimizer snapshots. Save replaces any snapshot
// with the same ID.
type SnapshotStore interface {
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context, id string) (*Snapshot, error)
	List(ctx context.Context) ([]SnapshotInfo, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

func validateID(id string) error {
	if id == "" {
		return apperrors.New(apperrors.CodeInvalidParams, "snapshot id cannot be empty")
	}
	if filepath.Base(id) != id || id == "." || id == ".." {
		return apperrors.Errorf(apperrors.CodeInvalidParams, "invalid snapshot id %q", id)
	}
	return nil
}

func validateSnapshot(s *Snapshot) error {
	if s == nil {
		return apperrors.New(apperrors.CodeInvalidParams, "snapshot cannot be nil")
	}
	if err := validateID(s.ID); err != nil {
		return err
	}
	if len(s.Data) == 0 {
		return apperrors.Errorf(apperrors.CodeInvalidParams, "snapshot %s has no data", s.ID)
	}
	return nil
}
