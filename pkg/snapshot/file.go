package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/pkgcheck/pkg/errors"
)

// LatestFile names the file holding the ID of the latest snapshot in a
// [FileStore] directory.
const LatestFile = "latest"

// FileStore keeps snapshots as JSON files in a directory.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates a file store.
// If dir is empty, defaults to ~/.local/share/pkgcheck/snapshots/
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", "pkgcheck", "snapshots")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create snapshot dir")
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file a snapshot is stored in.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := validateID(snap.ID); err != nil {
		return err
	}
	data, err := Marshal(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.Path(snap.ID), data); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write snapshot")
	}
	if err := writeAtomic(filepath.Join(s.dir, LatestFile), []byte(snap.ID+"\n")); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write latest pointer")
	}
	return nil
}

func (s *FileStore) Latest(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	data, err := os.ReadFile(filepath.Join(s.dir, LatestFile))
	s.mu.RUnlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(LatestFile)
		}
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read latest pointer")
	}
	return s.Get(ctx, strings.TrimSpace(string(data)))
}

func (s *FileStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "read snapshot")
	}
	return Unmarshal(data)
}

func (s *FileStore) Close() error { return nil }

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
