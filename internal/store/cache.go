// Package store holds the per-identity entity caches.  Each cache is a
// materialized view of one remote collection: Load replaces the items
// wholesale, failures keep the previous items and record the error, and
// Reset returns the cache to its empty, uninitialized state.
//
// Loads are not coalesced.  When two loads overlap the last one to finish
// wins.  A Reset while a load is in flight discards that load's result.
package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/meit-app/meit/internal/gateway"
)

// State is a point-in-time copy of a cache.
type State[T any] struct {
	Items       []T
	IsLoading   bool
	Err         error
	Initialized bool
}

// Collection is the state machine every entity cache embeds.
type Collection[T any] struct {
	name string
	log  *zap.Logger

	mu          sync.RWMutex
	items       []T
	inflight    int
	err         error
	initialized bool
	epoch       uint64 // bumped by Reset; results of older loads are dropped

	onReset func() // runs under mu during Reset
}

func newCollection[T any](name string, log *zap.Logger) *Collection[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collection[T]{name: name, log: log.With(zap.String("cache", name))}
}

// Snapshot returns a copy of the current state.
func (c *Collection[T]) Snapshot() State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return State[T]{
		Items:       append([]T(nil), c.items...),
		IsLoading:   c.inflight > 0,
		Err:         c.err,
		Initialized: c.initialized,
	}
}

// Reset clears the cache.  In-flight loads started before the call will
// not write their results.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.inflight = 0
	c.err = nil
	c.initialized = false
	c.epoch++
	if c.onReset != nil {
		c.onReset()
	}
}

func (c *Collection[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight++
	return c.epoch
}

// commit installs items if no Reset happened since begin.  merge, when set,
// runs under the lock and may rewrite the items before they are stored.
func (c *Collection[T]) commit(epoch uint64, items []T, merge func([]T) []T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return false
	}
	c.inflight--
	if merge != nil {
		items = merge(items)
	}
	c.items = items
	c.err = nil
	c.initialized = true
	return true
}

func (c *Collection[T]) fail(epoch uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch != c.epoch {
		return
	}
	c.inflight--
	c.err = err
}

// run performs one load cycle.  The fetch runs without the lock.
func (c *Collection[T]) run(ctx context.Context, customerID string, fetch func(context.Context) ([]T, error), merge func([]T) []T) error {
	epoch := c.begin()
	items, err := fetch(ctx)
	if err != nil {
		c.fail(epoch, err)
		c.log.Warn("load failed",
			zap.String("customer_id", customerID),
			zap.String("kind", gateway.KindOf(err)),
			zap.Error(err))
		return err
	}
	if items == nil {
		items = []T{}
	}
	if !c.commit(epoch, items, merge) {
		c.log.Debug("discarded load result after reset", zap.String("customer_id", customerID))
	}
	return nil
}

// record stores err as the cache error and logs it.
func (c *Collection[T]) record(op string, err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	c.log.Warn(op+" failed", zap.String("kind", gateway.KindOf(err)), zap.Error(err))
}

// view runs fn over the items under the read lock.
func (c *Collection[T]) view(fn func(items []T)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn(c.items)
}

// filter returns copies of the items keep accepts.
func (c *Collection[T]) filter(keep func(T) bool) []T {
	out := []T{}
	c.view(func(items []T) {
		for _, it := range items {
			if keep(it) {
				out = append(out, it)
			}
		}
	})
	return out
}

// find returns the first item match accepts.
func (c *Collection[T]) find(match func(T) bool) (T, bool) {
	var (
		found T
		ok    bool
	)
	c.view(func(items []T) {
		for _, it := range items {
			if match(it) {
				found, ok = it, true
				return
			}
		}
	})
	return found, ok
}
