package repository

import (
	"sort"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
)

// MemorySignalStore is the process-local signal cache. Entries are replaced
// whole and never removed; each Put bumps the symbol's version.
type MemorySignalStore struct {
	mu      sync.RWMutex
	entries map[string]models.AggregateSignal
	now     func() time.Time
}

func NewMemorySignalStore(now func() time.Time) *MemorySignalStore {
	if now == nil {
		now = time.Now
	}
	return &MemorySignalStore{entries: make(map[string]models.AggregateSignal), now: now}
}

// Put stores sig, stamping Version and UpdatedAt, and returns the stored entry.
func (s *MemorySignalStore) Put(sig models.AggregateSignal) models.AggregateSignal {
	s.mu.Lock()
	defer s.mu.Unlock()

	sig.Version = s.entries[sig.Symbol].Version + 1
	sig.UpdatedAt = s.now()
	sig.Reasoning = nil
	s.entries[sig.Symbol] = sig
	return sig
}

func (s *MemorySignalStore) Get(symbol string) (models.AggregateSignal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.entries[symbol]
	return sig, ok
}

// All returns every entry ordered by symbol.
func (s *MemorySignalStore) All() []models.AggregateSignal {
	s.mu.RLock()
	out := make([]models.AggregateSignal, 0, len(s.entries))
	for _, sig := range s.entries {
		out = append(out, sig)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ApplyReasoning attaches the patch only if it targets the current version.
func (s *MemorySignalStore) ApplyReasoning(p models.ReasoningPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[p.Symbol]
	if !ok || cur.Version != p.Version {
		return false
	}
	r := p.Reasoning
	cur.Reasoning = &r
	s.entries[p.Symbol] = cur
	return true
}

// Seed installs a snapshot restored from a mirror. It never overwrites an
// entry that is already present, so a completed scan always wins.
func (s *MemorySignalStore) Seed(sig models.AggregateSignal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sig.Symbol == "" {
		return false
	}
	if _, ok := s.entries[sig.Symbol]; ok {
		return false
	}
	s.entries[sig.Symbol] = sig
	return true
}

func (s *MemorySignalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ domrepo.SignalStore = (*MemorySignalStore)(nil)
