package table

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestDB creates a new file-backed database for testing.
func createTestDB(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seed inserts rows into ns, failing the test on any error.
func seed(t *testing.T, s *SQLite, ns string, entries ...Entry) {
	t.Helper()
	ops := make([]Op, len(entries))
	for i, e := range entries {
		ops[i] = Insert(e.Key, e.Value)
	}
	outcomes, err := s.ApplyBatch(context.Background(), ns, ops)
	if err != nil {
		t.Fatalf("seed ApplyBatch() failed: %v", err)
	}
	for _, o := range outcomes {
		if !o.OK() {
			t.Fatalf("seed %s %q failed: %v", o.Op.Kind, o.Op.Key, o.Err)
		}
	}
}
