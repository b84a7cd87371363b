package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const snapshotExt = ".snap"

// FSStore keeps one msgpack file per snapshot under a base directory.
//
// Writes go to a temporary file that is renamed into place, so readers never
// see a partial snapshot and no locking is needed.
type FSStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewFSStore creates a filesystem store, creating baseDir if needed.
func NewFSStore(baseDir string, logger *zap.Logger) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSStore{baseDir: baseDir, logger: logger}, nil
}

func (fs *FSStore) path(id string) string {
	return filepath.Join(fs.baseDir, id+snapshotExt)
}

// Save atomically writes s.
func (fs *FSStore) Save(_ context.Context, s *Snapshot) error {
	if err := validateSnapshot(s); err != nil {
		return err
	}

	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(fs.baseDir, s.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp snapshot file: %w", err)
	}

	finalPath := fs.path(s.ID)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	fs.logger.Debug("Snapshot saved", zap.String("snapshot_id", s.ID), zap.String("path", finalPath))
	return nil
}

// Load reads the snapshot with the given ID.
func (fs *FSStore) Load(_ context.Context, id string) (*Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.path(id))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{ID: id}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var s Snapshot
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	return &s, nil
}

// List returns the metadata of every readable snapshot, oldest first.
// Corrupt files are skipped.
func (fs *FSStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	infos := []SnapshotInfo{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		id := strings.TrimSuffix(name, snapshotExt)
		s, err := fs.Load(ctx, id)
		if err != nil {
			fs.logger.Warn("Skipping unreadable snapshot", zap.String("snapshot_id", id), zap.Error(err))
			continue
		}
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos, nil
}

// Delete removes the snapshot with the given ID.
func (fs *FSStore) Delete(_ context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := os.Remove(fs.path(id))
	if os.IsNotExist(err) {
		return &NotFoundError{ID: id}
	} else if err != nil {
		return fmt.Errorf("failed to remove snapshot file: %w", err)
	}
	fs.logger.Debug("Snapshot deleted", zap.String("snapshot_id", id))
	return nil
}

// Close is a no-op.
func (fs *FSStore) Close() error { return nil }
