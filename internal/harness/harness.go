package harness

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/roach88/prefkv/internal/prefs"
	"github.com/roach88/prefkv/internal/table"
	"github.com/roach88/prefkv/internal/testutil"
)

// StepTimeout bounds how long a step's commit may take.
const StepTimeout = 10 * time.Second

// Harness executes one scenario against a fresh store.
type Harness struct {
	backend    prefs.Backend
	memory     *table.Memory // nil for SQLite
	seedWrites int
	closeFn    func() error
	reg     *prefs.Registry
	store   *prefs.Store

	mu     sync.Mutex
	result *Result
	step   int
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh backing table for isolation.
//
// Execution flow:
// 1. Create the backing table and write the seed rows
// 2. Open the store and subscribe to its notifications
// 3. Run each step, waiting for its commit before its reads
// 4. Capture the final table contents and evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}
	defer h.close(ctx)

	for i, step := range scenario.Steps {
		if err := h.runStep(ctx, i+1, step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	if err := h.reg.Sync(ctx); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	result := h.snapshot()
	rows, err := h.backend.Scan(ctx, scenario.Namespace)
	if err != nil {
		return nil, fmt.Errorf("scan final state: %w", err)
	}
	for _, r := range rows {
		result.State[r.Key] = r.Value
	}
	if h.memory != nil {
		result.Writes = h.memory.Writes(scenario.Namespace) - h.seedWrites
	}

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	h := &Harness{result: NewResult()}

	switch scenario.Backend {
	case BackendSQLite:
		db, err := table.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory database: %w", err)
		}
		h.backend = db
		h.closeFn = db.Close
	default:
		mem := table.NewMemory()
		h.backend = mem
		h.memory = mem
		h.closeFn = func() error { return nil }
	}

	if err := seed(ctx, h.backend, scenario.Namespace, scenario.Seed); err != nil {
		_ = h.closeFn()
		return nil, err
	}
	if h.memory != nil {
		h.seedWrites = h.memory.Writes(scenario.Namespace)
		h.memory.FailKeys(scenario.Namespace, scenario.FailKeys...)
	}

	h.reg = prefs.NewRegistry(h.backend, prefs.WithLogger(testutil.DiscardLogger()))
	st, err := h.reg.Store(ctx, scenario.Namespace)
	if err != nil {
		_ = h.reg.Close(ctx)
		_ = h.closeFn()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	h.store = st
	st.Subscribe(ctx, h.onChange)
	return h, nil
}

// seed writes rows in key order so insertion order is deterministic.
func seed(ctx context.Context, b prefs.Backend, ns string, rows map[string]string) error {
	if len(rows) == 0 {
		return nil
	}
	ops := make([]table.Op, 0, len(rows))
	for _, k := range sortedKeys(rows) {
		ops = append(ops, table.Insert(k, rows[k]))
	}
	outcomes, err := b.ApplyBatch(ctx, ns, ops)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	for _, o := range outcomes {
		if !o.OK() {
			return fmt.Errorf("seed %q: %w", o.Op.Key, o.Err)
		}
	}
	return nil
}

func (h *Harness) close(ctx context.Context) {
	_ = h.reg.Close(ctx)
	_ = h.closeFn()
}

// onChange runs on the store's commit worker.
func (h *Harness) onChange(_ *prefs.Store, key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.result.add(TraceEvent{Type: EventNotify, Step: h.step, Key: key})
}

func (h *Harness) runStep(ctx context.Context, n int, step Step) error {
	h.mu.Lock()
	h.step = n
	h.mu.Unlock()

	if step.edits() {
		e := h.store.Edit()
		if step.Clear {
			e.Clear()
		}
		for _, k := range sortedKeys(step.Put) {
			e.PutString(k, step.Put[k])
		}
		for _, k := range step.Remove {
			e.Remove(k)
		}

		waitCtx, cancel := context.WithTimeout(ctx, StepTimeout)
		res, err := e.Apply().Wait(waitCtx)
		cancel()
		if err != nil {
			return err
		}
		h.recordCommit(n, res, step.Expect)
	}

	for _, k := range step.Get {
		v, found, err := h.store.Get(ctx, k)
		if err != nil {
			return fmt.Errorf("get %q: %w", k, err)
		}
		h.mu.Lock()
		h.result.add(TraceEvent{Type: EventRead, Step: n, Key: k, Value: v, Found: found})
		h.mu.Unlock()
	}
	return nil
}

func (h *Harness) recordCommit(n int, res prefs.CommitResult, want *StepExpect) {
	h.mu.Lock()
	defer h.mu.Unlock()

	failed := res.FailedKeys()
	h.result.add(TraceEvent{
		Type:      EventCommit,
		Step:      n,
		Persisted: res.Persisted,
		Unchanged: res.Unchanged,
		Failed:    failed,
	})

	if want == nil {
		return
	}
	check := func(field string, want, got []string) {
		if want != nil && !slices.Equal(want, got) && !(len(want) == 0 && len(got) == 0) {
			h.result.AddError(fmt.Sprintf("step %d: %s = %v, want %v", n, field, got, want))
		}
	}
	check("persisted", want.Persisted, res.Persisted)
	check("unchanged", want.Unchanged, res.Unchanged)
	check("failed", want.Failed, failed)
}

// snapshot returns the result once all steps are done.
func (h *Harness) snapshot() *Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
