package usecase

import (
	"errors"
	"strings"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/internal/services/indicators"
)

var ErrSignalNotFound = errors.New("signal not found")

// SignalQuery is the read side of the store used by the API and stream.
type SignalQuery struct {
	store domrepo.SignalStore
	now   func() time.Time
}

func NewSignalQuery(store domrepo.SignalStore, now func() time.Time) *SignalQuery {
	if now == nil {
		now = time.Now
	}
	return &SignalQuery{store: store, now: now}
}

// List returns every cached signal flagged against maxAge.
func (q *SignalQuery) List(maxAge time.Duration) []models.SignalView {
	now := q.now()
	all := q.store.All()
	out := make([]models.SignalView, len(all))
	for i, sig := range all {
		out[i] = models.SignalView{AggregateSignal: sig, Stale: models.IsStale(sig, maxAge, now)}
	}
	return out
}

func (q *SignalQuery) Get(symbol string, maxAge time.Duration) (models.SignalView, error) {
	sig, ok := q.store.Get(normalizeSymbol(symbol))
	if !ok {
		return models.SignalView{}, ErrSignalNotFound
	}
	return models.SignalView{AggregateSignal: sig, Stale: models.IsStale(sig, maxAge, q.now())}, nil
}

// Plan re-targets the symbol's last swing range at price. Without a dynamic
// range the static plan is returned.
func (q *SignalQuery) Plan(symbol string, price float64) (models.FibonacciPlan, error) {
	sig, ok := q.store.Get(normalizeSymbol(symbol))
	if !ok {
		return models.FibonacciPlan{}, ErrSignalNotFound
	}
	if !sig.Plan.IsDynamic {
		return indicators.StaticPlan(price), nil
	}
	return indicators.PlanFromSwings(price, sig.Plan.SwingHigh, sig.Plan.SwingLow), nil
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
