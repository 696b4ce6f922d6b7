package prefs

import (
	"maps"

	"github.com/roach88/prefkv/internal/value"
)

// pendingEdit is a staged overwrite or, if tombstone is set, a removal.
type pendingEdit struct {
	value     string
	tombstone bool
	seq       int64
}

// Editor stages changes to a Store.
//
// Staged values are visible to reads of the same store immediately. They
// become durable only after Apply, and asynchronously. An Editor is not safe
// for concurrent use; obtain one per goroutine from Store.Edit.
type Editor struct {
	store *Store
	edits map[string]pendingEdit
}

// Put stages v under key.
func (e *Editor) Put(key string, v value.Value) *Editor {
	raw := v.Encode()
	seq := e.store.clock.next()
	e.edits[key] = pendingEdit{value: raw, seq: seq}
	e.store.cache.put(key, raw, seq)
	return e
}

// PutString stages a string value.
func (e *Editor) PutString(key, v string) *Editor {
	return e.Put(key, value.String(v))
}

// PutBool stages a boolean value.
func (e *Editor) PutBool(key string, v bool) *Editor {
	return e.Put(key, value.Bool(v))
}

// PutInt stages a 32-bit integer value.
func (e *Editor) PutInt(key string, v int32) *Editor {
	return e.Put(key, value.Int(v))
}

// PutLong stages a 64-bit integer value.
func (e *Editor) PutLong(key string, v int64) *Editor {
	return e.Put(key, value.Long(v))
}

// PutFloat stages a 32-bit float value.
func (e *Editor) PutFloat(key string, v float32) *Editor {
	return e.Put(key, value.Float(v))
}

// PutStringSet stages a set of strings. Order and duplicates are not kept.
func (e *Editor) PutStringSet(key string, v []string) *Editor {
	return e.Put(key, value.StringSet(v))
}

// Remove stages the removal of key. The key reads as absent from now on.
func (e *Editor) Remove(key string) *Editor {
	seq := e.store.clock.next()
	e.edits[key] = pendingEdit{tombstone: true, seq: seq}
	e.store.cache.tombstone(key, seq)
	return e
}

// Clear drops this editor's staged changes and the store's whole in-memory
// cache. The backing table is not modified; later reads reload from it.
func (e *Editor) Clear() *Editor {
	clear(e.edits)
	e.store.cache.clear()
	return e
}

// Commit always fails with ErrUnsupportedOperation. Use Apply.
func (e *Editor) Commit() error {
	return ErrUnsupportedOperation
}

// Apply submits the staged changes for persistence and resets the editor.
// It never blocks. The returned Commit may be used to wait for completion.
func (e *Editor) Apply() *Commit {
	edits := maps.Clone(e.edits)
	if edits == nil {
		edits = make(map[string]pendingEdit)
	}
	clear(e.edits)
	return e.store.pipeline.submit(edits)
}

// Len returns the number of staged keys.
func (e *Editor) Len() int {
	return len(e.edits)
}
