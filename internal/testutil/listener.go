package testutil

import (
	"sync"

	"github.com/roach88/prefkv/internal/prefs"
)

// Notification is one listener callback as seen by a Recorder.
type Notification struct {
	Namespace string
	Key       string
}

// Recorder is a prefs.Listener that records every notification it receives.
//
// Thread-safety: all methods are safe for concurrent use. Callbacks arrive on
// store commit workers while tests read from their own goroutine.
type Recorder struct {
	mu     sync.Mutex
	events []Notification
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnPreferenceChanged implements prefs.Listener.
func (r *Recorder) OnPreferenceChanged(s *prefs.Store, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Notification{Namespace: s.Namespace(), Key: key})
}

// Notifications returns a copy of everything recorded, in arrival order.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.events))
	copy(out, r.events)
	return out
}

// Keys returns the notified keys in arrival order.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.events))
	for i, n := range r.events {
		keys[i] = n.Key
	}
	return keys
}

// Count returns how often key was notified.
func (r *Recorder) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Key == key {
			n++
		}
	}
	return n
}

// Len returns the number of notifications recorded.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Panicker is a prefs.Listener that panics on every notification.
// Calls counts the attempts.
type Panicker struct {
	mu    sync.Mutex
	calls int
}

// OnPreferenceChanged implements prefs.Listener.
func (p *Panicker) OnPreferenceChanged(s *prefs.Store, key string) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	panic("listener failure for " + key)
}

// Calls returns how often the listener was invoked.
func (p *Panicker) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
