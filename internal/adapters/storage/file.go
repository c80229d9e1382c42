package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

const fileExt = ".json"

// FileStore keeps one file per key under a directory. Writes go to a temp
// file that is renamed over the target, so readers never see a partial value.
type FileStore struct {
	dir string

	mu          sync.Mutex
	lastWritten map[string][]byte
}

// NewFileStore creates dir if needed and returns a FileStore rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &FileStore{dir: dir, lastWritten: make(map[string][]byte)}, nil
}

// Dir returns the storage directory.
func (f *FileStore) Dir() string { return f.dir }

// Path returns the file holding key.
func (f *FileStore) Path(key string) string {
	return filepath.Join(f.dir, key+fileExt)
}

// Get implements ports.KeyValueStore.
func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.NewNotFoundError("storage key", key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	return data, nil
}

// Set implements ports.KeyValueStore.
func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", key, err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("writing %s: %w", key, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("syncing %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("closing %s: %w", key, err)
	}

	if err := os.Rename(tmpName, f.Path(key)); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("replacing %s: %w", key, err)
	}

	f.lastWritten[key] = bytes.Clone(value)

	return nil
}

// Delete implements ports.KeyValueStore.
func (f *FileStore) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.lastWritten, key)

	if err := os.Remove(f.Path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", key, err)
	}

	return nil
}

// WroteLast reports whether the file for key still holds what this process
// last wrote. The watcher uses it to ignore its own saves.
func (f *FileStore) WroteLast(key string) bool {
	f.mu.Lock()
	last, ok := f.lastWritten[key]
	f.mu.Unlock()

	if !ok {
		return false
	}

	current, err := os.ReadFile(f.Path(key))
	if err != nil {
		return false
	}

	return bytes.Equal(current, last)
}

// Name implements ports.HealthChecker.
func (f *FileStore) Name() string { return "storage" }

// Check implements ports.HealthChecker: the directory must exist and be writable.
func (f *FileStore) Check(context.Context) error {
	probe, err := os.CreateTemp(f.dir, ".health.*.tmp")
	if err != nil {
		return fmt.Errorf("storage directory not writable: %w", err)
	}

	name := probe.Name()
	_ = probe.Close()

	return os.Remove(name)
}

// Close implements io.Closer.
func (f *FileStore) Close() error { return nil }

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return domain.NewValidationError("key", fmt.Sprintf("invalid storage key %q", key))
	}

	return nil
}
