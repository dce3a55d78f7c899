package repository

import (
	"sync"
	"testing"
	"time"

	"SignalEngine/internal/domain/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestPutVersionsAndStamps(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemorySignalStore(clock.Now)

	first := s.Put(models.AggregateSignal{Symbol: "BTCUSDT", Score: 40})
	clock.Advance(2 * time.Second)
	second := s.Put(models.AggregateSignal{Symbol: "BTCUSDT", Score: 60})
	other := s.Put(models.AggregateSignal{Symbol: "ETHUSDT", Score: 50})

	if first.Version != 1 || second.Version != 2 || other.Version != 1 {
		t.Fatalf("versions = %d %d %d", first.Version, second.Version, other.Version)
	}
	if !second.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("updated_at = %v", second.UpdatedAt)
	}
	got, ok := s.Get("BTCUSDT")
	if !ok || got.Score != 60 || got.Version != 2 {
		t.Fatalf("get = %+v, %v", got, ok)
	}
	if s.Len() != 2 {
		t.Fatalf("len = %d", s.Len())
	}
}

func TestGetMissingSymbol(t *testing.T) {
	s := NewMemorySignalStore(nil)
	if _, ok := s.Get("DOGEUSDT"); ok {
		t.Fatalf("expected absence before first put")
	}
}

func TestAllSortedBySymbol(t *testing.T) {
	s := NewMemorySignalStore(nil)
	for _, sym := range []string{"SOLUSDT", "BTCUSDT", "ETHUSDT"} {
		s.Put(models.AggregateSignal{Symbol: sym})
	}
	all := s.All()
	if len(all) != 3 || all[0].Symbol != "BTCUSDT" || all[1].Symbol != "ETHUSDT" || all[2].Symbol != "SOLUSDT" {
		t.Fatalf("order = %+v", all)
	}
}

func TestApplyReasoningOnlyToMatchingVersion(t *testing.T) {
	s := NewMemorySignalStore(nil)
	v1 := s.Put(models.AggregateSignal{Symbol: "BTCUSDT"})
	v2 := s.Put(models.AggregateSignal{Symbol: "BTCUSDT"})

	stale := models.ReasoningPatch{Symbol: "BTCUSDT", Version: v1.Version, Reasoning: models.Reasoning{Text: "old"}}
	if s.ApplyReasoning(stale) {
		t.Fatalf("stale patch must be rejected")
	}
	fresh := models.ReasoningPatch{Symbol: "BTCUSDT", Version: v2.Version, Reasoning: models.Reasoning{Opinion: "bullish", Text: "new"}}
	if !s.ApplyReasoning(fresh) {
		t.Fatalf("matching patch must apply")
	}
	got, _ := s.Get("BTCUSDT")
	if got.Reasoning == nil || got.Reasoning.Text != "new" {
		t.Fatalf("reasoning = %+v", got.Reasoning)
	}
	if got.Version != v2.Version {
		t.Fatalf("patch must not bump version")
	}
	if s.ApplyReasoning(models.ReasoningPatch{Symbol: "ETHUSDT", Version: 1}) {
		t.Fatalf("unknown symbol must be rejected")
	}
}

func TestPutClearsPreviousReasoning(t *testing.T) {
	s := NewMemorySignalStore(nil)
	v1 := s.Put(models.AggregateSignal{Symbol: "BTCUSDT"})
	s.ApplyReasoning(models.ReasoningPatch{Symbol: "BTCUSDT", Version: v1.Version, Reasoning: models.Reasoning{Text: "x"}})
	s.Put(models.AggregateSignal{Symbol: "BTCUSDT"})
	got, _ := s.Get("BTCUSDT")
	if got.Reasoning != nil {
		t.Fatalf("reasoning of an older cycle leaked into the new entry")
	}
}

func TestConcurrentReadersSeeWholeEntries(t *testing.T) {
	s := NewMemorySignalStore(nil)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			v := float64(i)
			s.Put(models.AggregateSignal{Symbol: "BTCUSDT", Price: v, Score: v})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if sig, ok := s.Get("BTCUSDT"); ok && sig.Price != sig.Score {
				t.Errorf("torn read: %+v", sig)
				return
			}
		}
	}()
	wg.Wait()
}

func TestSeedDoesNotOverwrite(t *testing.T) {
	s := NewMemorySignalStore(nil)
	fresh := s.Put(models.AggregateSignal{Symbol: "BTCUSDT", Score: 70})

	if s.Seed(models.AggregateSignal{Symbol: "BTCUSDT", Score: 10, Version: 9}) {
		t.Fatalf("seed replaced a live entry")
	}
	got, _ := s.Get("BTCUSDT")
	if got.Score != fresh.Score || got.Version != fresh.Version {
		t.Fatalf("entry changed: %+v", got)
	}

	if !s.Seed(models.AggregateSignal{Symbol: "ETHUSDT", Score: 33, Version: 4}) {
		t.Fatalf("seed rejected new symbol")
	}
	next := s.Put(models.AggregateSignal{Symbol: "ETHUSDT", Score: 34})
	if next.Version != 5 {
		t.Fatalf("version after seed = %d, want 5", next.Version)
	}
	if s.Seed(models.AggregateSignal{}) {
		t.Fatalf("seed accepted empty symbol")
	}
}
