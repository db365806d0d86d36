package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_add_session_theme.sql", "001_create_sessions.sql", "README.md", "abc.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := listMigrations(dir)
	if err != nil {
		t.Fatalf("listMigrations: %v", err)
	}

	want := []migration{
		{version: 1, name: "001_create_sessions.sql"},
		{version: 2, name: "002_add_session_theme.sql"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(migration{})); diff != "" {
		t.Fatalf("listMigrations mismatch (-want +got):\n%s", diff)
	}
}

func TestListMigrations_ShippedFiles(t *testing.T) {
	got, err := listMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("listMigrations: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("expected at least 2 migrations, got %d", len(got))
	}
	for i, m := range got {
		if m.version != i+1 {
			t.Errorf("migration %s has version %d, want %d", m.name, m.version, i+1)
		}
	}
}

func TestOpenSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pomodoro.db")

	db, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected directory to exist: %v", err)
	}
}
