package prefs

import (
	"sync"

	"github.com/roach88/prefkv/internal/table"
)

// cacheEntry is the cached state of one key.
// seq is the edit that produced the entry; 0 for values read from the table.
type cacheEntry struct {
	value   string
	seq     int64
	deleted bool // pending removal: the key reads as absent
	pending bool // staged by an edit that has not finished committing
}

// readCache maps keys to their current value.
//
// A pending entry belongs to an edit that is staged or queued but not yet
// committed. Commits run in apply order, so a commit result replaces any
// entry except another edit's pending one; that edit's own commit settles
// the key later, or its failure evicts it. Fills from the backing table are
// guarded by a generation counter that moves on every commit-side change, so
// a read that raced a commit cannot plant a stale row.
type readCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	gen     uint64
}

func newReadCache() *readCache {
	return &readCache{entries: make(map[string]cacheEntry)}
}

// get returns the entry for key. A deleted entry is returned with ok=true so
// callers can distinguish "known absent" from "not cached".
func (c *readCache) get(key string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

// generation returns the value to pass to fill after a backing read.
func (c *readCache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// put records an optimistic write.
func (c *readCache) put(key, value string, seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, seq: seq, pending: true}
}

// tombstone hides key until its removal commits.
func (c *readCache) tombstone(key string, seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{seq: seq, deleted: true, pending: true}
}

// fill caches a row read from the backing table, unless the key gained an
// entry or a commit changed the cache since gen was taken.
func (c *readCache) fill(key, value string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	if _, ok := c.entries[key]; !ok {
		c.entries[key] = cacheEntry{value: value}
	}
}

// merge overlays the cache on scanned rows and returns the visible mapping.
// Rows are also cached under the same rules as fill.
func (c *readCache) merge(rows []table.Entry, gen uint64) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keep := c.gen == gen
	out := make(map[string]string, len(rows)+len(c.entries))
	for _, r := range rows {
		if _, ok := c.entries[r.Key]; ok {
			continue
		}
		out[r.Key] = r.Value
		if keep {
			c.entries[r.Key] = cacheEntry{value: r.Value}
		}
	}
	for k, e := range c.entries {
		if !e.deleted {
			out[k] = e.value
		}
	}
	return out
}

// confirmPut records that value for key is durable as of the edit seq.
func (c *readCache) confirmPut(key, value string, seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.heldByOther(key, seq) {
		return
	}
	c.entries[key] = cacheEntry{value: value, seq: seq}
}

// confirmDelete records that key is durably absent as of the edit seq.
func (c *readCache) confirmDelete(key string, seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if c.heldByOther(key, seq) {
		return
	}
	delete(c.entries, key)
}

// evict forgets the edit seq after it failed to persist so the next read
// consults the backing table. Entries of other edits are left alone.
func (c *readCache) evict(key string, seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if e, ok := c.entries[key]; ok && e.pending && e.seq == seq {
		delete(c.entries, key)
	}
}

// heldByOther reports whether key carries another edit's uncommitted entry.
// Caller holds c.mu.
func (c *readCache) heldByOther(key string, seq int64) bool {
	e, ok := c.entries[key]
	return ok && e.pending && e.seq != seq
}

// clear discards every entry, tombstones included.
func (c *readCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]cacheEntry)
}
