package table

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestDB(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		if err := s.EnsureTable(context.Background(), "prefs"); err != nil {
			t.Fatalf("EnsureTable() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	names, err := s.Namespaces(context.Background())
	if err != nil {
		t.Fatalf("Namespaces() failed: %v", err)
	}
	if len(names) != 1 || names[0] != "prefs" {
		t.Errorf("Namespaces() = %v, want [prefs]", names)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.DB().Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Error("expected error for newer schema version, got nil")
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	seed(t, s, "prefs", Entry{Key: "k", Value: "v"})
	v, ok, err := s.Lookup(context.Background(), "prefs", "k")
	if err != nil || !ok || v != "v" {
		t.Errorf("Lookup() = %q, %v, %v; want \"v\", true, nil", v, ok, err)
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &SQLite{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestEnsureTable_CreatesLayout(t *testing.T) {
	s := createTestDB(t)
	ctx := context.Background()

	if err := s.EnsureTable(ctx, "user settings"); err != nil {
		t.Fatalf("EnsureTable() failed: %v", err)
	}

	rows, err := s.DB().Query(`SELECT name, "notnull", pk FROM pragma_table_info('user settings') ORDER BY cid`)
	if err != nil {
		t.Fatalf("table_info failed: %v", err)
	}
	defer rows.Close()

	type column struct {
		name    string
		notNull int
		pk      int
	}
	var got []column
	for rows.Next() {
		var c column
		if err := rows.Scan(&c.name, &c.notNull, &c.pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, c)
	}

	want := []column{{"_id", 0, 1}, {"key", 1, 0}, {"value", 1, 0}}
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEnsureTable_QuotedNames(t *testing.T) {
	s := createTestDB(t)
	ctx := context.Background()

	// Names that would break an unquoted identifier.
	names := []string{`we"ird`, "select", "drop table x; --", "préférences"}
	for _, ns := range names {
		if err := s.EnsureTable(ctx, ns); err != nil {
			t.Errorf("EnsureTable(%q) failed: %v", ns, err)
			continue
		}
		seed(t, s, ns, Entry{Key: "k", Value: ns})
		v, ok, err := s.Lookup(ctx, ns, "k")
		if err != nil || !ok || v != ns {
			t.Errorf("Lookup in %q = %q, %v, %v", ns, v, ok, err)
		}
	}
}

func TestEnsureTable_InvalidNamespace(t *testing.T) {
	s := createTestDB(t)
	ctx := context.Background()

	for _, ns := range []string{"", "sqlite_master", "prefkv_namespaces", "a\x00b"} {
		err := s.EnsureTable(ctx, ns)
		if !errors.Is(err, ErrInvalidNamespace) {
			t.Errorf("EnsureTable(%q) error = %v, want ErrInvalidNamespace", ns, err)
		}
	}
}

func TestNamespaces_Sorted(t *testing.T) {
	s := createTestDB(t)
	ctx := context.Background()

	for _, ns := range []string{"zeta", "alpha", "mid"} {
		if err := s.EnsureTable(ctx, ns); err != nil {
			t.Fatalf("EnsureTable(%q) failed: %v", ns, err)
		}
	}

	names, err := s.Namespaces(ctx)
	if err != nil {
		t.Fatalf("Namespaces() failed: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Namespaces() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Namespaces()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
