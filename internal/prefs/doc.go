// Package prefs implements the prefkv preference store.
//
// A Store is an in-memory read cache in front of one backing table. Writes
// are staged in an Editor, applied optimistically to the cache, and made
// durable asynchronously by the store's commit pipeline. Listeners hear
// about a key only after its change has been persisted.
//
// ARCHITECTURE:
//
// Single-Writer Commit Pipeline:
// Every Store owns one FIFO task queue and one worker goroutine. Editor.Apply
// snapshots the editor's pending edits into a task and enqueues it without
// blocking. The worker drains tasks strictly in submission order, so commits
// from any number of concurrent editors on one store are totally ordered.
//
// Commit Processing Flow:
//  1. Apply() enqueues an immutable snapshot of the pending edits
//  2. The worker looks up every key of the snapshot in the backing table
//  3. Each key becomes an insert, update, delete, or nothing
//  4. All writes of the task go to the backing table as one batch
//  5. Keys whose write succeeded are confirmed in the cache; failed keys are
//     evicted so later reads fall back to the durable value
//  6. Listeners are notified once per persisted key, in key order
//
// Reads never wait for the pipeline. A Put is visible to Get immediately and
// a Remove hides the key immediately, before either is durable.
//
// Failures are logged and reported through the optional *Commit handle
// returned by Apply; callers that ignore it get fire-and-forget semantics.
//
// Stores are obtained from a Registry, which guarantees one Store per
// namespace and owns the worker goroutines.
package prefs
