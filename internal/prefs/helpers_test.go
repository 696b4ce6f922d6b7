package prefs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/prefkv/internal/prefs"
	"github.com/roach88/prefkv/internal/table"
	"github.com/roach88/prefkv/internal/testutil"
)

const testNS = "settings"

// newRegistry creates a registry over backend that is closed at test end.
func newRegistry(t *testing.T, backend prefs.Backend) *prefs.Registry {
	t.Helper()
	reg := prefs.NewRegistry(backend, prefs.WithLogger(testutil.DiscardLogger()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = reg.Close(ctx)
	})
	return reg
}

// newMemoryStore opens testNS on a fresh in-memory backend.
func newMemoryStore(t *testing.T) (*prefs.Store, *table.Memory) {
	t.Helper()
	mem := table.NewMemory()
	s, err := newRegistry(t, mem).Store(context.Background(), testNS)
	require.NoError(t, err)
	return s, mem
}

// wait blocks until c completes and fails the test if it never ran.
func wait(t *testing.T, c *prefs.Commit) prefs.CommitResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := c.Wait(ctx)
	require.NoError(t, err)
	return res
}
