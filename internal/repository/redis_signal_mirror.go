package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/pkg/cache"
)

func signalKey(symbol string) string { return "signal:" + symbol }

// RedisSignalMirror keeps a TTL-bound copy of the latest signal per symbol
// so other processes (and a restarted engine) can read it.
type RedisSignalMirror struct {
	cache cache.Store
	ttl   time.Duration
}

func NewRedisSignalMirror(c cache.Store, ttl time.Duration) *RedisSignalMirror {
	return &RedisSignalMirror{cache: c, ttl: ttl}
}

func (m *RedisSignalMirror) Publish(ctx context.Context, sig models.AggregateSignal) error {
	if err := m.cache.Put(ctx, signalKey(sig.Symbol), sig, m.ttl); err != nil {
		return fmt.Errorf("mirror %s: %w", sig.Symbol, err)
	}
	return nil
}

// Restore reads the mirrored signals for symbols in one batch. Missing keys
// and entries filed under another symbol are skipped; undecodable ones are
// reported.
func (m *RedisSignalMirror) Restore(ctx context.Context, symbols []string) ([]models.AggregateSignal, error) {
	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = signalKey(sym)
	}
	found, err := m.cache.FetchMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("restore signals: %w", err)
	}

	out := make([]models.AggregateSignal, 0, len(found))
	var errs []error
	for i, sym := range symbols {
		raw, ok := found[keys[i]]
		if !ok {
			continue
		}
		var sig models.AggregateSignal
		if err := json.Unmarshal(raw, &sig); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", sym, err))
			continue
		}
		if sig.Symbol != sym {
			continue
		}
		out = append(out, sig)
	}
	return out, errors.Join(errs...)
}

// Close is a no-op; the client is owned by the cache provider.
func (m *RedisSignalMirror) Close() error { return nil }

var _ domrepo.SignalPublisher = (*RedisSignalMirror)(nil)
