package prefs

import "sync/atomic"

// clock is a monotonic logical clock for edit ordering.
//
// Every staged edit is stamped with a strictly increasing seq. The cache uses
// it to tell whether a commit result is still the newest word on a key, so a
// slow commit never overwrites a later optimistic write.
type clock struct {
	seq atomic.Int64
}

// next returns the next sequence number. Safe for concurrent use.
func (c *clock) next() int64 {
	return c.seq.Add(1)
}
