package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rkreels/spendguard/internal/apperr"
)

// File implements Provider with one <key>.json file per key in a flat data
// directory, written atomically (tmp file, fsync, rename).
//
// A second process writing the same directory wins or loses wholesale:
// whole-value overwrites, no merge, no version check. Watch lets the owning
// process observe such external writes and reload the affected collections.
type File struct {
	root string // absolute path to the data directory

	mu   sync.Mutex
	sums map[string]string // key -> digest of our last write, to skip self-events
}

// NewFile creates a file provider rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &File{root: abs, sums: make(map[string]string)}, nil
}

// Root returns the absolute data directory path.
func (f *File) Root() string { return f.root }

// keyPath validates key and resolves it to an absolute file path. Keys are
// plain names; anything with a separator or traversal is rejected.
func (f *File) keyPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage: key is required")
	}
	cleaned := filepath.Clean(key)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("storage: invalid key: %s", key)
	}
	return filepath.Join(f.root, cleaned+".json"), nil
}

// Read returns the value stored under key.
func (f *File) Read(key string) ([]byte, error) {
	abs, err := f.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Write atomically writes value: tmp file, fsync, rename.
func (f *File) Write(key string, value []byte) error {
	abs, err := f.keyPath(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".spendguard-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true

	f.mu.Lock()
	f.sums[key] = digest(value)
	f.mu.Unlock()
	return nil
}

// Keys lists every stored key (file stem) in the data directory.
func (f *File) Keys() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".json"))
	}
	return out, nil
}

// Close is a no-op; files are closed per operation.
func (f *File) Close() error { return nil }

// changed reports whether the on-disk content under key differs from our last
// write. Used by Watch to drop events caused by this process.
func (f *File) changed(key string) bool {
	data, err := f.Read(key)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sums[key] != digest(data)
}

// Watch starts an fsnotify watcher on the data directory and calls cb with
// the key of every externally-changed file until ctx is cancelled. Events are
// debounced per key so a rename-based atomic writer fires once.
func (f *File) Watch(ctx context.Context, logger *slog.Logger, cb func(key string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.root); err != nil {
		return err
	}
	logger.Info("storage watcher: started", slog.String("root", f.root))

	pending := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(200 * time.Millisecond)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			key := strings.TrimSuffix(filepath.Base(ev.Name), ".json")
			pending[key] = struct{}{}
			schedule()

		case <-flushCh:
			for key := range pending {
				delete(pending, key)
				if !f.changed(key) {
					continue
				}
				logger.Debug("storage watcher: external change", slog.String("key", key))
				cb(key)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("storage watcher: error", slog.String("error", err.Error()))
		}
	}
}

func digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
