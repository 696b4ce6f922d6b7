package prefs

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/roach88/prefkv/internal/table"
)

// pipeline runs a store's commit tasks one at a time, in submission order.
type pipeline struct {
	store *Store
	queue *taskQueue
	done  chan struct{} // closed when run returns
}

func newPipeline(s *Store, capacity int) *pipeline {
	return &pipeline{
		store: s,
		queue: newTaskQueue(capacity),
		done:  make(chan struct{}),
	}
}

// submit enqueues edits as one task. It never blocks.
func (p *pipeline) submit(edits map[string]pendingEdit) *Commit {
	task := commitTask{
		id:     uuid.Must(uuid.NewV7()).String(),
		edits:  edits,
		commit: newCommit(),
	}
	if !p.queue.Enqueue(task) {
		// The optimistic cache entries will never be confirmed.
		for key, e := range edits {
			p.store.cache.evict(key, e.seq)
		}
		task.commit.complete(CommitResult{TaskID: task.id}, ErrClosed)
	}
	return task.commit
}

// run is the worker loop. It returns once the queue is closed and drained,
// or when ctx is cancelled; tasks still queued then complete with ErrClosed.
func (p *pipeline) run(ctx context.Context) {
	defer close(p.done)
	logger := p.store.logger.With("namespace", p.store.namespace)
	logger.Debug("commit worker starting")

	for {
		if ctx.Err() != nil {
			logger.Debug("commit worker stopping: context cancelled")
			p.queue.Close()
			p.abandon()
			return
		}

		if task, ok := p.queue.TryDequeue(); ok {
			p.runTask(ctx, task)
			continue
		}

		select {
		case <-ctx.Done():
			// Handled at the top of the loop.
		case <-p.queue.Wait():
			// A closed signal channel fires repeatedly; stop only once
			// nothing is left to run.
			if p.queue.Drained() {
				logger.Debug("commit worker stopping: queue closed")
				return
			}
		}
	}
}

// abandon fails every queued task without touching the backing table.
func (p *pipeline) abandon() {
	for {
		task, ok := p.queue.TryDequeue()
		if !ok {
			return
		}
		for key, e := range task.edits {
			p.store.cache.evict(key, e.seq)
		}
		task.commit.complete(CommitResult{TaskID: task.id}, ErrClosed)
	}
}

// write is a backing-table operation paired with the edit that caused it.
type write struct {
	op   table.Op
	edit pendingEdit
}

// runTask reconciles one snapshot against the backing table, applies every
// resulting write as one batch, then notifies listeners of persisted keys.
func (p *pipeline) runTask(ctx context.Context, task commitTask) {
	s := p.store
	res := CommitResult{TaskID: task.id, Failed: make(map[string]error)}

	keys := make([]string, 0, len(task.edits))
	for k := range task.edits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	writes := make([]write, 0, len(keys))
	for _, key := range keys {
		e := task.edits[key]
		current, found, err := s.backend.Lookup(ctx, s.namespace, key)
		if err != nil {
			p.fail(&res, key, e, 0, err)
			continue
		}

		switch {
		case e.tombstone && !found:
			// Nothing to delete; the key is not reported as changed.
			s.cache.confirmDelete(key, e.seq)
		case e.tombstone:
			writes = append(writes, write{op: table.Delete(key), edit: e})
		case !found:
			writes = append(writes, write{op: table.Insert(key, e.value), edit: e})
		case current == e.value:
			s.cache.confirmPut(key, e.value, e.seq)
			res.Unchanged = append(res.Unchanged, key)
		default:
			writes = append(writes, write{op: table.Update(key, e.value), edit: e})
		}
	}

	if len(writes) > 0 {
		p.applyWrites(ctx, &res, writes)
	}

	s.logger.Debug("commit task processed",
		"namespace", s.namespace,
		"task", task.id,
		"persisted", len(res.Persisted),
		"unchanged", len(res.Unchanged),
		"failed", len(res.Failed),
	)

	for _, key := range res.Persisted {
		s.listeners.notify(s, key)
	}
	task.commit.complete(res, nil)
}

func (p *pipeline) applyWrites(ctx context.Context, res *CommitResult, writes []write) {
	s := p.store
	ops := make([]table.Op, len(writes))
	for i, w := range writes {
		ops[i] = w.op
	}

	outcomes, err := s.backend.ApplyBatch(ctx, s.namespace, ops)
	if err == nil && len(outcomes) != len(ops) {
		err = errors.New("backing table returned mismatched outcomes")
	}
	if err != nil {
		for _, w := range writes {
			p.fail(res, w.op.Key, w.edit, w.op.Kind, err)
		}
		return
	}

	for i, o := range outcomes {
		w := writes[i]
		if !o.OK() {
			p.fail(res, w.op.Key, w.edit, w.op.Kind, o.Err)
			continue
		}
		if w.op.Kind == table.OpDelete {
			s.cache.confirmDelete(w.op.Key, w.edit.seq)
		} else {
			s.cache.confirmPut(w.op.Key, w.op.Value, w.edit.seq)
		}
		res.Persisted = append(res.Persisted, w.op.Key)
	}
}

// fail records a key that did not persist and evicts its optimistic entry so
// later reads fall back to the durable value.
func (p *pipeline) fail(res *CommitResult, key string, e pendingEdit, op table.OpKind, err error) {
	s := p.store
	perr := &PersistenceError{Namespace: s.namespace, Key: key, Op: op, Err: err}
	res.Failed[key] = perr
	s.cache.evict(key, e.seq)
	s.logger.Warn("preference not persisted",
		"namespace", s.namespace,
		"key", key,
		"task", res.TaskID,
		"error", perr,
	)
}
