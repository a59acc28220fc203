// Package metricbus publishes derived dashboard metrics to a durable store
// and fans them out to subscribers. Writes are arbitrated by timestamp:
// a snapshot that is not strictly newer than the stored one is dropped.
package metricbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

// ErrUnknownMetric is returned by stores when a key was never published.
var ErrUnknownMetric = errors.New("metric not found")

// Store persists the latest snapshot per key.
type Store interface {
	// Get returns the stored snapshot or ErrUnknownMetric.
	Get(ctx context.Context, key string) (models.MetricSnapshot, error)
	// CompareAndSet stores snap only when snap.ComputedAt is strictly after
	// the stored value, and reports whether it did.
	CompareAndSet(ctx context.Context, snap models.MetricSnapshot) (bool, error)
}

// Handler receives accepted snapshots.
type Handler func(models.MetricSnapshot)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is the publish/subscribe front of a Store.
type Bus struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	nextID   uint64
	subs     map[string][]subscription
	keyLocks map[string]*sync.Mutex
}

// New wires a Bus. A nil store falls back to an in-memory one.
func New(store Store, logger *zap.Logger) *Bus {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		store:  store,
		logger: logger,
		now:    time.Now,
		subs:     make(map[string][]subscription),
		keyLocks: make(map[string]*sync.Mutex),
	}
}

// WithClock replaces the clock used to stamp publications.
func (b *Bus) WithClock(now func() time.Time) *Bus {
	b.now = now
	return b
}

// Publish stamps value with the current time and stores it. It reports
// whether the write was accepted; stale writes are not errors.
func (b *Bus) Publish(ctx context.Context, key string, value float64, source string) (bool, error) {
	return b.Republish(ctx, models.MetricSnapshot{
		Key:        key,
		Value:      value,
		ComputedAt: b.now().UTC(),
		Source:     source,
	})
}

// Republish stores an already stamped snapshot if it is newer than the
// stored one, then notifies the key's subscribers. Writes to one key are
// serialized through delivery, so subscribers see accepted snapshots in
// ComputedAt order. Handlers must not publish to the key they observe.
func (b *Bus) Republish(ctx context.Context, snap models.MetricSnapshot) (bool, error) {
	if snap.Key == "" {
		return false, errors.New("metric key must not be empty")
	}

	lock := b.keyLock(snap.Key)
	lock.Lock()
	defer lock.Unlock()

	accepted, err := b.store.CompareAndSet(ctx, snap)
	if err != nil {
		return false, fmt.Errorf("store metric %s: %w", snap.Key, err)
	}
	if !accepted {
		b.logger.Debug("stale metric ignored",
			zap.String("key", snap.Key),
			zap.String("source", snap.Source),
			zap.Time("computed_at", snap.ComputedAt))
		return false, nil
	}

	b.notify(snap)
	return true, nil
}

func (b *Bus) keyLock(key string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		b.keyLocks[key] = lock
	}
	return lock
}

// Subscribe registers handler for key. The returned func removes it.
func (b *Bus) Subscribe(key string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[key] = append(b.subs[key], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		current := b.subs[key]
		for i, s := range current {
			if s.id == id {
				b.subs[key] = append(current[:i:i], current[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the stored snapshot for key.
func (b *Bus) Snapshot(ctx context.Context, key string) (models.MetricSnapshot, error) {
	return b.store.Get(ctx, key)
}

// Value returns the stored value for key, or 0 when nothing was published
// or the store cannot be reached.
func (b *Bus) Value(ctx context.Context, key string) float64 {
	snap, err := b.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrUnknownMetric) {
			b.logger.Warn("metric read failed, using default", zap.String("key", key), zap.Error(err))
		}
		return 0
	}
	return snap.Value
}

func (b *Bus) notify(snap models.MetricSnapshot) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[snap.Key]))
	for _, s := range b.subs[snap.Key] {
		handlers = append(handlers, s.handler)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(snap)
	}
}
