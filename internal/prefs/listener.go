package prefs

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Listener is notified after a key's change has been persisted.
//
// The store keeps a registered listener only until UnregisterListener is
// called; it does not otherwise manage the listener's lifetime. Listeners
// run on the store's commit worker and must not block for long.
type Listener interface {
	OnPreferenceChanged(s *Store, key string)
}

// ListenerFunc adapts a function for use with Subscribe.
type ListenerFunc func(s *Store, key string)

// Subscription is a function listener registered with Subscribe.
type Subscription struct {
	id   string
	set  *listenerSet
	once sync.Once

	mu   sync.Mutex
	stop func() bool
}

// ID returns the subscription's unique identifier.
func (sub *Subscription) ID() string {
	return sub.id
}

// Cancel ends the subscription. Safe to call more than once.
func (sub *Subscription) Cancel() {
	sub.mu.Lock()
	stop := sub.stop
	sub.mu.Unlock()
	if stop != nil {
		stop()
	}
	sub.end()
}

func (sub *Subscription) end() {
	sub.once.Do(func() {
		sub.set.removeID(sub.id)
	})
}

type listenerEntry struct {
	id       string
	listener Listener     // set for RegisterListener
	fn       ListenerFunc // set for Subscribe
}

// listenerSet holds the observers of one store.
// No ordering guarantee is made between listeners.
type listenerSet struct {
	mu      sync.Mutex
	entries []listenerEntry
}

func (ls *listenerSet) register(l Listener) error {
	if l == nil {
		return fmt.Errorf("register listener: nil listener")
	}
	if !reflect.TypeOf(l).Comparable() {
		return fmt.Errorf("register listener %T: %w", l, ErrListenerNotComparable)
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	for _, e := range ls.entries {
		if e.listener != nil && e.listener == l {
			return nil
		}
	}
	ls.entries = append(ls.entries, listenerEntry{id: uuid.NewString(), listener: l})
	return nil
}

func (ls *listenerSet) unregister(l Listener) {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i, e := range ls.entries {
		if e.listener != nil && e.listener == l {
			ls.entries = append(ls.entries[:i:i], ls.entries[i+1:]...)
			return
		}
	}
}

func (ls *listenerSet) subscribe(ctx context.Context, fn ListenerFunc) *Subscription {
	sub := &Subscription{id: uuid.NewString(), set: ls}

	ls.mu.Lock()
	ls.entries = append(ls.entries, listenerEntry{id: sub.id, fn: fn})
	ls.mu.Unlock()

	// The context is the subscription's liveness token.
	sub.mu.Lock()
	sub.stop = context.AfterFunc(ctx, sub.end)
	sub.mu.Unlock()
	return sub
}

func (ls *listenerSet) removeID(id string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	for i, e := range ls.entries {
		if e.id == id {
			ls.entries = append(ls.entries[:i:i], ls.entries[i+1:]...)
			return
		}
	}
}

func (ls *listenerSet) len() int {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return len(ls.entries)
}

// notify calls every listener for key. A panicking listener is logged and
// skipped; it does not stop the others.
func (ls *listenerSet) notify(s *Store, key string) {
	ls.mu.Lock()
	entries := make([]listenerEntry, len(ls.entries))
	copy(entries, ls.entries)
	ls.mu.Unlock()

	for _, e := range entries {
		callListener(s, key, e)
	}
}

func callListener(s *Store, key string, e listenerEntry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("listener panicked",
				"namespace", s.namespace,
				"key", key,
				"listener", e.id,
				"panic", r,
			)
		}
	}()

	if e.fn != nil {
		e.fn(s, key)
		return
	}
	e.listener.OnPreferenceChanged(s, key)
}
