package prefs

import (
	"context"
	"sort"
)

// CommitResult summarizes one processed commit task.
type CommitResult struct {
	// TaskID correlates the task with log lines.
	TaskID string
	// Persisted lists keys whose change reached the backing table, in the
	// order listeners were notified.
	Persisted []string
	// Unchanged lists keys that needed no write.
	Unchanged []string
	// Failed maps keys that did not persist to a *PersistenceError.
	Failed map[string]error
}

// OK reports whether every key of the task was reconciled.
func (r CommitResult) OK() bool {
	return len(r.Failed) == 0
}

// FailedKeys returns the failed keys in ascending order.
func (r CommitResult) FailedKeys() []string {
	keys := make([]string, 0, len(r.Failed))
	for k := range r.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Commit is the completion signal of an applied edit. Callers that do not
// care about completion can ignore it.
type Commit struct {
	done   chan struct{}
	result CommitResult
	err    error
}

func newCommit() *Commit {
	return &Commit{done: make(chan struct{})}
}

// closedCommit returns a commit that already completed with err.
func closedCommit(err error) *Commit {
	c := newCommit()
	c.complete(CommitResult{}, err)
	return c
}

// complete is called exactly once, by the pipeline worker.
func (c *Commit) complete(res CommitResult, err error) {
	c.result = res
	c.err = err
	close(c.done)
}

// Done is closed once the commit task has been processed.
func (c *Commit) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the task is processed or ctx is done.
//
// Per-key persistence failures are reported in CommitResult.Failed, not as
// the returned error. The error is non-nil only if the task never ran
// (ErrClosed) or ctx ended first.
func (c *Commit) Wait(ctx context.Context) (CommitResult, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return CommitResult{}, ctx.Err()
	}
}
