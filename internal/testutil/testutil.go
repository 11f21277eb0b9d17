// Package testutil provides shared test helpers for setting up sound
// libraries, state files and play logs.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/soundboard/internal/history"
	"github.com/starford/soundboard/internal/state"
	"github.com/starford/soundboard/internal/storage"
)

// TestDB creates a temporary SQLite play log that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "soundboard-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLibrary creates a temporary sound folder holding files (paths relative
// to the root, one category level allowed) with placeholder content.
func TestLibrary(t *testing.T, files ...string) (string, *storage.Library) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "sound")
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("fake-audio"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	lib, err := storage.NewLibrary(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, lib
}

// TestStore opens a state store backed by a temporary config.json.
func TestStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Open(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
