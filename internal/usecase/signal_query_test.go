package usecase

import (
	"errors"
	"testing"
	"time"

	"SignalEngine/internal/domain/models"
	"SignalEngine/internal/repository"
)

func TestSignalQueryStaleness(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := repository.NewMemorySignalStore(clock)
	store.Put(models.AggregateSignal{Symbol: "BTCUSDT", Price: 1})
	now = now.Add(3 * time.Minute)
	store.Put(models.AggregateSignal{Symbol: "ETHUSDT", Price: 1})

	q := NewSignalQuery(store, clock)
	views := q.List(2 * time.Minute)
	if len(views) != 2 || !views[0].Stale || views[1].Stale {
		t.Fatalf("views = %+v", views)
	}
	for _, v := range q.List(0) {
		if v.Stale {
			t.Fatalf("zero max age must never be stale")
		}
	}

	if _, err := q.Get("solusdt", 0); !errors.Is(err, ErrSignalNotFound) {
		t.Fatalf("err = %v", err)
	}
	v, err := q.Get(" btcusdt", time.Minute)
	if err != nil || !v.Stale {
		t.Fatalf("get = %+v, %v", v, err)
	}
}

func TestSignalQueryPlan(t *testing.T) {
	store := repository.NewMemorySignalStore(nil)
	store.Put(models.AggregateSignal{
		Symbol: "BTCUSDT",
		Price:  100,
		Plan:   models.FibonacciPlan{IsDynamic: true, SwingHigh: 110, SwingLow: 90},
	})
	store.Put(models.AggregateSignal{Symbol: "ETHUSDT", Price: 10})
	q := NewSignalQuery(store, nil)

	plan, err := q.Plan("BTCUSDT", 105)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !plan.IsDynamic || plan.TP <= 105 || plan.SL >= 105 {
		t.Fatalf("plan = %+v", plan)
	}

	static, err := q.Plan("ETHUSDT", 10)
	if err != nil || static.IsDynamic || static.TP <= 10 || static.SL >= 10 {
		t.Fatalf("static plan = %+v, %v", static, err)
	}

	if _, err := q.Plan("XRPUSDT", 1); !errors.Is(err, ErrSignalNotFound) {
		t.Fatalf("err = %v", err)
	}
}
