// Package table provides durable backing-table access for prefkv stores.
//
// Every namespace maps to exactly one physical table with the layout:
//
//	_id   INTEGER PRIMARY KEY AUTOINCREMENT
//	key   TEXT NOT NULL UNIQUE
//	value TEXT NOT NULL
//
// Tables are created on first access. The contract is deliberately narrow:
// existence check, point lookup, full scan, and an ordered batch of
// insert/update/delete operations applied as one transaction with a
// per-operation outcome.
//
// # Implementations
//
//   - SQLite: mattn/go-sqlite3, WAL mode, a single pooled connection so that
//     batches from different callers never interleave on one connection.
//   - Memory: map-backed, with fault injection hooks for tests.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package table
