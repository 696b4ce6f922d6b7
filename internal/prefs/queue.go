package prefs

import "sync"

// commitTask is the immutable snapshot of one editor's buffer.
// A task with no edits is a barrier used by Store.Sync.
type commitTask struct {
	id     string
	edits  map[string]pendingEdit
	commit *Commit
}

// taskQueue is an unbounded FIFO of commit tasks.
//
// Editors enqueue from any goroutine; the store's worker is the only
// consumer. Enqueue never blocks, so Apply never waits on persistence.
// A buffered signal channel lets the worker wait with a context.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []commitTask
	closed bool
	signal chan struct{} // size 1, closed on Close
}

func newTaskQueue(capacity int) *taskQueue {
	if capacity < 0 {
		capacity = 0
	}
	return &taskQueue{
		tasks:  make([]commitTask, 0, capacity),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds t to the back of the queue.
// Returns false if the queue is closed.
func (q *taskQueue) Enqueue(t commitTask) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.tasks = append(q.tasks, t)

	// Multiple signals coalesce in the one-slot buffer.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front task without blocking.
func (q *taskQueue) TryDequeue() (commitTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return commitTask{}, false
	}

	t := q.tasks[0]
	q.tasks[0] = commitTask{} // release the edit map for GC

	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, true
}

// Wait returns a channel that fires when tasks may be available.
// It is closed once the queue is closed.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and holds no tasks.
func (q *taskQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.tasks) == 0
}

// Len returns the number of queued tasks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops accepting tasks and wakes the worker. Queued tasks remain
// available to TryDequeue.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
