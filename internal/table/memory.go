package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrInjected is the failure recorded for operations on keys marked with
// Memory.FailKeys.
var ErrInjected = errors.New("injected failure")

// Memory is an in-process backing table for tests and ephemeral stores.
//
// Besides the backing contract it exposes hooks to inject per-key failures,
// fail whole batches, hold batches until released, and count durable writes.
type Memory struct {
	mu       sync.Mutex
	tables   map[string]*memTable
	failKeys map[string]map[string]struct{}
	batchErr error
	gate     chan struct{}
	writes   map[string]int
	batches  int
}

type memTable struct {
	rows  map[string]string
	order []string // insertion order, mirrors _id ordering in SQLite
}

// NewMemory creates an empty in-memory backing table.
func NewMemory() *Memory {
	return &Memory{
		tables:   make(map[string]*memTable),
		failKeys: make(map[string]map[string]struct{}),
		writes:   make(map[string]int),
	}
}

// EnsureTable creates the table for ns if needed.
func (m *Memory) EnsureTable(ctx context.Context, ns string) error {
	if err := ValidateNamespace(ns); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table(ns)
	return nil
}

// table returns the table for ns, creating it. Caller holds m.mu.
func (m *Memory) table(ns string) *memTable {
	t, ok := m.tables[ns]
	if !ok {
		t = &memTable{rows: make(map[string]string)}
		m.tables[ns] = t
	}
	return t
}

// Namespaces lists the created tables, sorted by name.
func (m *Memory) Namespaces(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tables))
	for ns := range m.tables {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether ns holds a row for key.
func (m *Memory) Exists(ctx context.Context, ns, key string) (bool, error) {
	_, ok, err := m.Lookup(ctx, ns, key)
	return ok, err
}

// Lookup returns the stored value for key and whether the row exists.
func (m *Memory) Lookup(ctx context.Context, ns, key string) (string, bool, error) {
	if err := ValidateNamespace(ns); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.table(ns).rows[key]
	return v, ok, nil
}

// Scan returns every row of ns in insertion order.
func (m *Memory) Scan(ctx context.Context, ns string) ([]Entry, error) {
	if err := ValidateNamespace(ns); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(ns)
	entries := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		entries = append(entries, Entry{Key: k, Value: t.rows[k]})
	}
	return entries, nil
}

// ApplyBatch applies ops with the same per-operation semantics as SQLite.
func (m *Memory) ApplyBatch(ctx context.Context, ns string, ops []Op) ([]Outcome, error) {
	if err := ValidateNamespace(ns); err != nil {
		return nil, err
	}

	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches++
	if m.batchErr != nil {
		return nil, fmt.Errorf("apply batch %q: %w", ns, m.batchErr)
	}

	t := m.table(ns)
	outcomes := make([]Outcome, len(ops))
	for i, op := range ops {
		outcomes[i] = Outcome{Op: op, Err: m.applyOp(ns, t, op)}
		if outcomes[i].OK() {
			m.writes[ns]++
		}
	}
	return outcomes, nil
}

// applyOp mutates t. Caller holds m.mu.
func (m *Memory) applyOp(ns string, t *memTable, op Op) error {
	if _, fail := m.failKeys[ns][op.Key]; fail {
		return fmt.Errorf("%s %q: %w", op.Kind, op.Key, ErrInjected)
	}

	_, exists := t.rows[op.Key]
	switch op.Kind {
	case OpInsert:
		if exists {
			return fmt.Errorf("%s %q: UNIQUE constraint failed", op.Kind, op.Key)
		}
		t.rows[op.Key] = op.Value
		t.order = append(t.order, op.Key)
	case OpUpdate:
		if !exists {
			return fmt.Errorf("%s %q: %w", op.Kind, op.Key, ErrNoRow)
		}
		t.rows[op.Key] = op.Value
	case OpDelete:
		if !exists {
			return fmt.Errorf("%s %q: %w", op.Kind, op.Key, ErrNoRow)
		}
		delete(t.rows, op.Key)
		for i, k := range t.order {
			if k == op.Key {
				t.order = append(t.order[:i], t.order[i+1:]...)
				break
			}
		}
	default:
		return fmt.Errorf("unknown operation %s for key %q", op.Kind, op.Key)
	}
	return nil
}

// FailKeys makes every subsequent operation on the given keys in ns fail
// with ErrInjected.
func (m *Memory) FailKeys(ns string, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.failKeys[ns]
	if !ok {
		set = make(map[string]struct{})
		m.failKeys[ns] = set
	}
	for _, k := range keys {
		set[k] = struct{}{}
	}
}

// FailBatches makes every subsequent ApplyBatch return err without
// persisting anything. Pass nil to restore normal behavior.
func (m *Memory) FailBatches(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErr = err
}

// Hold blocks every ApplyBatch until the returned release function is
// called. Release is idempotent.
func (m *Memory) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Writes returns the number of operations persisted to ns.
func (m *Memory) Writes(ns string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[ns]
}

// Batches returns the number of ApplyBatch calls across all namespaces.
func (m *Memory) Batches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}
