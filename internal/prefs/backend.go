package prefs

import (
	"context"

	"github.com/roach88/prefkv/internal/table"
)

// Backend is the durable backing-table contract a Store depends on.
// table.SQLite and table.Memory implement it.
type Backend interface {
	// EnsureTable creates the namespace table if it does not exist.
	EnsureTable(ctx context.Context, ns string) error
	// Exists reports whether a row for key exists.
	Exists(ctx context.Context, ns, key string) (bool, error)
	// Lookup returns the stored value and whether the row exists.
	Lookup(ctx context.Context, ns, key string) (string, bool, error)
	// Scan returns every row of the namespace.
	Scan(ctx context.Context, ns string) ([]table.Entry, error)
	// ApplyBatch applies ops atomically with one outcome per op.
	ApplyBatch(ctx context.Context, ns string, ops []table.Op) ([]table.Outcome, error)
}

var (
	_ Backend = (*table.SQLite)(nil)
	_ Backend = (*table.Memory)(nil)
)
