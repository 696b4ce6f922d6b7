package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/prefkv/internal/value"
)

// Store is the preference store of one namespace.
//
// Reads are served from an in-memory cache that falls back to the backing
// table on a miss. Writes go through an Editor and are persisted by the
// store's commit worker. A Store is safe for concurrent use and is obtained
// from a Registry, which guarantees one Store per namespace.
type Store struct {
	namespace string
	backend   Backend
	logger    *slog.Logger

	cache     *readCache
	listeners listenerSet
	clock     clock
	pipeline  *pipeline
}

func newStore(ns string, backend Backend, logger *slog.Logger, capacity int) *Store {
	s := &Store{
		namespace: ns,
		backend:   backend,
		logger:    logger,
		cache:     newReadCache(),
	}
	s.pipeline = newPipeline(s, capacity)
	return s
}

// Namespace returns the store's namespace.
func (s *Store) Namespace() string {
	return s.namespace
}

// Get returns the raw stored string for key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if e, ok := s.cache.get(key); ok {
		if e.deleted {
			return "", false, nil
		}
		return e.value, true, nil
	}

	gen := s.cache.generation()
	v, found, err := s.backend.Lookup(ctx, s.namespace, key)
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", s.namespace, key, err)
	}
	if found {
		s.cache.fill(key, v, gen)
	}
	return v, found, nil
}

// getTyped reads key and decodes it. def is returned when the key is absent
// and alongside any error.
func getTyped[T any](ctx context.Context, s *Store, key string, def T, decode func(string) (T, error)) (T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def, err
	}
	v, err := decode(raw)
	if err != nil {
		var tm *value.TypeMismatchError
		if errors.As(err, &tm) {
			tm.Key = key
		}
		return def, err
	}
	return v, nil
}

// GetString returns the value of key, or def if it is absent.
func (s *Store) GetString(ctx context.Context, key, def string) (string, error) {
	return getTyped(ctx, s, key, def, value.DecodeString)
}

// GetBool returns the boolean value of key, or def if it is absent.
// A value that is not a boolean yields an ErrTypeMismatch error.
func (s *Store) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	return getTyped(ctx, s, key, def, value.DecodeBool)
}

// GetInt returns the 32-bit integer value of key, or def if it is absent.
func (s *Store) GetInt(ctx context.Context, key string, def int32) (int32, error) {
	return getTyped(ctx, s, key, def, value.DecodeInt)
}

// GetLong returns the 64-bit integer value of key, or def if it is absent.
func (s *Store) GetLong(ctx context.Context, key string, def int64) (int64, error) {
	return getTyped(ctx, s, key, def, value.DecodeLong)
}

// GetFloat returns the float value of key, or def if it is absent.
func (s *Store) GetFloat(ctx context.Context, key string, def float32) (float32, error) {
	return getTyped(ctx, s, key, def, value.DecodeFloat)
}

// GetStringSet returns the string set stored under key, sorted, or def if it
// is absent.
func (s *Store) GetStringSet(ctx context.Context, key string, def []string) ([]string, error) {
	return getTyped(ctx, s, key, def, value.DecodeStringSet)
}

// GetAll returns a copy of every visible key and its raw value.
//
// The backing table is scanned and merged into the cache; staged values win
// over stored rows and staged removals are left out.
func (s *Store) GetAll(ctx context.Context) (map[string]string, error) {
	gen := s.cache.generation()
	rows, err := s.backend.Scan(ctx, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", s.namespace, err)
	}
	return s.cache.merge(rows, gen), nil
}

// Contains reports whether key currently has a value.
func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	if e, ok := s.cache.get(key); ok {
		return !e.deleted, nil
	}
	ok, err := s.backend.Exists(ctx, s.namespace, key)
	if err != nil {
		return false, fmt.Errorf("contains %s/%s: %w", s.namespace, key, err)
	}
	return ok, nil
}

// Edit returns a new, empty Editor for this store.
func (s *Store) Edit() *Editor {
	return &Editor{store: s, edits: make(map[string]pendingEdit)}
}

// Sync waits until every commit applied before the call has been processed.
func (s *Store) Sync(ctx context.Context) error {
	_, err := s.pipeline.submit(nil).Wait(ctx)
	if err != nil {
		return fmt.Errorf("sync %s: %w", s.namespace, err)
	}
	return nil
}

// RegisterListener adds l to the store's listeners. Registering the same
// listener twice has no effect. l must be of a comparable type.
func (s *Store) RegisterListener(l Listener) error {
	return s.listeners.register(l)
}

// UnregisterListener removes l. Unknown listeners are ignored.
func (s *Store) UnregisterListener(l Listener) {
	s.listeners.unregister(l)
}

// Subscribe registers fn until the subscription is cancelled or ctx is done.
func (s *Store) Subscribe(ctx context.Context, fn ListenerFunc) *Subscription {
	return s.listeners.subscribe(ctx, fn)
}
