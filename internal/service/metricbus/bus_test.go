package metricbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mamadbah2/tirecost/internal/domain/models"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time { return c.t }

func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBus() (*Bus, *stepClock) {
	clock := &stepClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(NewMemoryStore(), nil).WithClock(clock.now), clock
}

func TestBus_PublishNotifiesSubscribers(t *testing.T) {
	ctx := context.Background()
	bus, _ := newTestBus()

	var got []float64
	bus.Subscribe(models.MetricAverageCostPerUnit, func(s models.MetricSnapshot) { got = append(got, s.Value) })
	bus.Subscribe(models.MetricOverallProfitMargin, func(models.MetricSnapshot) { t.Fatal("wrong key notified") })

	accepted, err := bus.Publish(ctx, models.MetricAverageCostPerUnit, 13.5, "profit")
	if err != nil || !accepted {
		t.Fatalf("Publish accepted=%v err=%v", accepted, err)
	}

	if len(got) != 1 || got[0] != 13.5 {
		t.Fatalf("subscriber got %v, want [13.5]", got)
	}
	if v := bus.Value(ctx, models.MetricAverageCostPerUnit); v != 13.5 {
		t.Fatalf("Value=%v, want 13.5", v)
	}
}

func TestBus_RejectsOlderAndEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	bus, clock := newTestBus()

	notified := 0
	bus.Subscribe("k", func(models.MetricSnapshot) { notified++ })

	if ok, _ := bus.Publish(ctx, "k", 1, "a"); !ok {
		t.Fatal("first publish rejected")
	}

	// Same instant: rejected.
	if ok, _ := bus.Publish(ctx, "k", 2, "b"); ok {
		t.Fatal("equal timestamp accepted")
	}

	stored, err := bus.Snapshot(ctx, "k")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// A slower recomputation finishing late with an older stamp.
	older := models.MetricSnapshot{Key: "k", Value: 3, ComputedAt: stored.ComputedAt.Add(-time.Second), Source: "slow"}
	if ok, _ := bus.Republish(ctx, older); ok {
		t.Fatal("older snapshot accepted")
	}
	if v := bus.Value(ctx, "k"); v != 1 {
		t.Fatalf("Value=%v, want 1 after stale writes", v)
	}

	clock.advance(time.Millisecond)
	if ok, _ := bus.Publish(ctx, "k", 4, "c"); !ok {
		t.Fatal("newer publish rejected")
	}
	if v := bus.Value(ctx, "k"); v != 4 {
		t.Fatalf("Value=%v, want 4", v)
	}
	if notified != 2 {
		t.Fatalf("notified=%d, want 2", notified)
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	bus, clock := newTestBus()

	var first, second int
	unsubscribe := bus.Subscribe("k", func(models.MetricSnapshot) { first++ })
	bus.Subscribe("k", func(models.MetricSnapshot) { second++ })

	_, _ = bus.Publish(ctx, "k", 1, "x")
	unsubscribe()
	clock.advance(time.Second)
	_, _ = bus.Publish(ctx, "k", 2, "x")

	if first != 1 || second != 2 {
		t.Fatalf("first=%d second=%d, want 1 and 2", first, second)
	}
}

func TestBus_DefaultsToZero(t *testing.T) {
	bus, _ := newTestBus()
	if v := bus.Value(context.Background(), "never"); v != 0 {
		t.Fatalf("Value=%v, want 0", v)
	}
	if _, err := bus.Snapshot(context.Background(), "never"); !errors.Is(err, ErrUnknownMetric) {
		t.Fatalf("err=%v, want ErrUnknownMetric", err)
	}
}

func TestBus_ReadsDurableValueBeforeAnyPublish(t *testing.T) {
	store := NewMemoryStore()
	_, _ = store.CompareAndSet(context.Background(), models.MetricSnapshot{Key: "k", Value: 7, ComputedAt: time.Now()})

	bus := New(store, nil)
	if v := bus.Value(context.Background(), "k"); v != 7 {
		t.Fatalf("Value=%v, want 7 from durable store", v)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (models.MetricSnapshot, error) {
	return models.MetricSnapshot{}, errors.New("connection refused")
}

func (failingStore) CompareAndSet(context.Context, models.MetricSnapshot) (bool, error) {
	return false, errors.New("connection refused")
}

func TestBus_StoreErrors(t *testing.T) {
	bus := New(failingStore{}, nil)

	if _, err := bus.Publish(context.Background(), "k", 1, "x"); err == nil {
		t.Fatal("expected publish error")
	}
	if v := bus.Value(context.Background(), "k"); v != 0 {
		t.Fatalf("Value=%v, want 0 on store failure", v)
	}
	if _, err := bus.Publish(context.Background(), "", 1, "x"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

// gatedStore holds the compare-and-set of one value until release is closed.
type gatedStore struct {
	*MemoryStore
	gate    float64
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) CompareAndSet(ctx context.Context, snap models.MetricSnapshot) (bool, error) {
	accepted, err := s.MemoryStore.CompareAndSet(ctx, snap)
	if snap.Value == s.gate {
		close(s.entered)
		<-s.release
	}
	return accepted, err
}

func TestBus_ConcurrentRepublishDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		MemoryStore: NewMemoryStore(),
		gate:        1,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	bus := New(store, nil)

	var mu sync.Mutex
	var got []float64
	bus.Subscribe("k", func(s models.MetricSnapshot) {
		mu.Lock()
		got = append(got, s.Value)
		mu.Unlock()
	})

	t1 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := bus.Republish(ctx, models.MetricSnapshot{Key: "k", Value: 1, ComputedAt: t1}); err != nil {
			t.Errorf("Republish t1: %v", err)
		}
	}()
	<-store.entered

	newer := make(chan struct{})
	go func() {
		defer wg.Done()
		defer close(newer)
		if _, err := bus.Republish(ctx, models.MetricSnapshot{Key: "k", Value: 2, ComputedAt: t2}); err != nil {
			t.Errorf("Republish t2: %v", err)
		}
	}()

	// Give the newer publish time to race ahead of the held one.
	select {
	case <-newer:
	case <-time.After(50 * time.Millisecond):
	}
	close(store.release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 || got[len(got)-1] != 2 {
		t.Fatalf("subscriber saw %v, want last value 2", got)
	}
	if v := bus.Value(ctx, "k"); v != 2 {
		t.Fatalf("store value=%v, want 2", v)
	}
}
