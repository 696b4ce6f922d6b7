package prefs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/prefkv/internal/table"
)

// DefaultQueueCapacity is the initial capacity of each store's task queue.
const DefaultQueueCapacity = 16

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used by the registry and its stores.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithQueueCapacity sets the initial capacity of each store's task queue.
// Queues grow beyond it as needed.
func WithQueueCapacity(n int) Option {
	return func(r *Registry) {
		r.capacity = n
	}
}

// Registry hands out one Store per namespace.
//
// Namespace names are compared after NFC normalization, so canonically
// equivalent spellings share a store. Each store's commit worker runs until
// Close.
type Registry struct {
	backend  Backend
	logger   *slog.Logger
	capacity int

	mu     sync.RWMutex
	stores map[string]*Store
	closed bool

	ctx    context.Context // worker lifetime
	cancel context.CancelFunc
}

// NewRegistry creates a registry over backend.
func NewRegistry(backend Backend, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		backend:  backend,
		logger:   slog.Default(),
		capacity: DefaultQueueCapacity,
		stores:   make(map[string]*Store),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store for namespace, creating it on first use.
// Concurrent first calls for the same namespace return the same Store.
func (r *Registry) Store(ctx context.Context, namespace string) (*Store, error) {
	ns := norm.NFC.String(namespace)
	if err := table.ValidateNamespace(ns); err != nil {
		return nil, err
	}

	r.mu.RLock()
	s, ok := r.stores[ns]
	closed := r.closed
	r.mu.RUnlock()
	if ok {
		return s, nil
	}
	if closed {
		return nil, ErrClosed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have won the race.
	if s, ok := r.stores[ns]; ok {
		return s, nil
	}
	if r.closed {
		return nil, ErrClosed
	}

	if err := r.backend.EnsureTable(ctx, ns); err != nil {
		return nil, fmt.Errorf("open store %q: %w", ns, err)
	}

	s = newStore(ns, r.backend, r.logger, r.capacity)
	r.stores[ns] = s
	go s.pipeline.run(r.ctx)

	r.logger.Debug("store opened", "namespace", ns)
	return s, nil
}

// Namespaces returns the namespaces opened through this registry, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for ns := range r.stores {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) snapshot() []*Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stores := make([]*Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	return stores
}

// Sync waits until every store has processed the commits applied so far.
func (r *Registry) Sync(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range r.snapshot() {
		g.Go(func() error {
			return s.Sync(gctx)
		})
	}
	return g.Wait()
}

// Close stops accepting commits, lets every store drain its queue, and stops
// the workers. If ctx ends first the workers are cancelled and the commits
// still queued fail with ErrClosed. Close is idempotent.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	stores := r.snapshot()
	for _, s := range stores {
		s.pipeline.queue.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range stores {
		g.Go(func() error {
			select {
			case <-s.pipeline.done:
				return nil
			case <-gctx.Done():
				return fmt.Errorf("close %s: %w", s.namespace, gctx.Err())
			}
		})
	}
	err := g.Wait()

	r.cancel()
	for _, s := range stores {
		<-s.pipeline.done
	}
	return err
}
