// Package testutil provides shared test helpers for stores and services.
package testutil

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/rkreels/spendguard/internal/storage"
)

// Logger returns a quiet logger for tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// FileStore creates a temporary data directory with a file provider.
func FileStore(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// SQLiteStore creates a temporary SQLite database that is automatically
// cleaned up.
func SQLiteStore(t *testing.T) storage.Provider {
	t.Helper()
	dbFile, err := os.CreateTemp("", "spendguard-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := storage.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FixedClock returns a deterministic clock that advances one second per call.
func FixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		out := cur
		cur = cur.Add(time.Second)
		return out
	}
}
