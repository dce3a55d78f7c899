package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	applogger "SignalEngine/pkg/logger"
)

// SignalPipeline sits between the scanner and the downstream publishers.
// It validates, throttles per symbol, and parks signals until the flusher
// delivers them. Parked signals coalesce by symbol: only the newest is sent.
type SignalPipeline struct {
	pub         domrepo.SignalPublisher
	metrics     domrepo.Metrics
	l           *applogger.Logger
	minInterval time.Duration
	maxPending  int
	retryMin    time.Duration
	retryMax    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
	pending  map[string]models.AggregateSignal
	wake     chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
	started  bool
}

type PipelineOption func(*SignalPipeline)

// WithMinInterval sets the minimum gap between two publishes of one symbol.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if d >= 0 {
			p.minInterval = d
		}
	}
}

// WithMaxPending caps how many symbols may wait for redelivery.
func WithMaxPending(n int) PipelineOption {
	return func(p *SignalPipeline) {
		if n > 0 {
			p.maxPending = n
		}
	}
}

func WithRetryBackoff(min, max time.Duration) PipelineOption {
	return func(p *SignalPipeline) {
		if min > 0 {
			p.retryMin = min
		}
		if max >= p.retryMin {
			p.retryMax = max
		}
	}
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *SignalPipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func NewSignalPipeline(pub domrepo.SignalPublisher, metrics domrepo.Metrics, l *applogger.Logger, opts ...PipelineOption) *SignalPipeline {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	p := &SignalPipeline{
		pub:         pub,
		metrics:     metrics,
		l:           l,
		minInterval: time.Second,
		maxPending:  256,
		retryMin:    100 * time.Millisecond,
		retryMax:    5 * time.Second,
		now:         time.Now,
		lastSent:    make(map[string]time.Time),
		pending:     make(map[string]models.AggregateSignal),
		wake:        make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OnSignal parks sig for the background flusher and returns without
// publishing. Throttling applies when the flusher picks it up.
func (p *SignalPipeline) OnSignal(_ context.Context, sig models.AggregateSignal) {
	if err := validateSignal(sig); err != nil {
		p.metrics.RecordError("pipeline_validate")
		p.l.Warn("signal rejected",
			applogger.String("symbol", sig.Symbol),
			applogger.Uint64("version", sig.Version),
			applogger.Error(err),
		)
		return
	}
	p.park(sig)
}

// Process validates sig and publishes it unless the symbol was published
// within the minimum interval, in which case it is parked for the flusher.
func (p *SignalPipeline) Process(ctx context.Context, sig models.AggregateSignal) error {
	start := p.now()
	if err := validateSignal(sig); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if !p.allow(sig.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		p.park(sig)
		return nil
	}

	if err := p.pub.Publish(ctx, sig); err != nil {
		p.metrics.RecordError("pipeline_publish")
		p.park(sig)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.markSent(sig.Symbol, start)
	p.metrics.RecordLatency("pipeline_publish", p.now().Sub(start).Seconds())
	return nil
}

// Start launches the background flusher for parked signals.
func (p *SignalPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flushLoop(ctx)
}

// Stop halts the flusher and waits for it to exit.
func (p *SignalPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.done
}

// Pending returns the number of symbols waiting for redelivery.
func (p *SignalPipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *SignalPipeline) flushLoop(ctx context.Context) {
	defer close(p.done)

	backoff := p.retryMin
	timer := time.NewTimer(backoff)
	defer timer.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-p.wake:
		case <-timer.C:
		}

		if p.Flush(ctx) {
			backoff = p.retryMin
		} else {
			backoff = time.Duration(math.Min(float64(backoff*2), float64(p.retryMax)))
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(backoff)
	}
}

// Flush attempts every parked signal that is out of its throttle window.
// It reports false if any delivery failed.
func (p *SignalPipeline) Flush(ctx context.Context) bool {
	now := p.now()
	p.mu.Lock()
	ready := make([]models.AggregateSignal, 0, len(p.pending))
	for sym, sig := range p.pending {
		if p.withinInterval(sym, now) {
			continue
		}
		ready = append(ready, sig)
		delete(p.pending, sym)
	}
	p.mu.Unlock()

	ok := true
	for _, sig := range ready {
		if err := p.pub.Publish(ctx, sig); err != nil {
			p.metrics.RecordError("pipeline_flush")
			p.park(sig)
			ok = false
			continue
		}
		p.markSent(sig.Symbol, now)
	}
	return ok
}

func (p *SignalPipeline) allow(symbol string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.withinInterval(symbol, now)
}

// withinInterval must be called with mu held.
func (p *SignalPipeline) withinInterval(symbol string, now time.Time) bool {
	if p.minInterval <= 0 {
		return false
	}
	last, ok := p.lastSent[symbol]
	return ok && now.Sub(last) < p.minInterval
}

func (p *SignalPipeline) markSent(symbol string, at time.Time) {
	p.mu.Lock()
	p.lastSent[symbol] = at
	p.mu.Unlock()
}

// park keeps the newest version per symbol.
func (p *SignalPipeline) park(sig models.AggregateSignal) {
	p.mu.Lock()
	cur, exists := p.pending[sig.Symbol]
	switch {
	case exists && cur.Version > sig.Version:
	case !exists && len(p.pending) >= p.maxPending:
		p.mu.Unlock()
		p.metrics.RecordError("pipeline_buffer_full")
		return
	default:
		p.pending[sig.Symbol] = sig
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

var errEmptySymbol = errors.New("signal symbol empty")

func validateSignal(sig models.AggregateSignal) error {
	if sig.Symbol == "" {
		return errEmptySymbol
	}
	if !(sig.Price > 0) || math.IsInf(sig.Price, 0) {
		return fmt.Errorf("signal %s: invalid price %v", sig.Symbol, sig.Price)
	}
	if math.IsNaN(sig.Score) || sig.Score < 0 || sig.Score > 100 {
		return fmt.Errorf("signal %s: score %v out of range", sig.Symbol, sig.Score)
	}
	switch sig.Action {
	case models.ActionBuy, models.ActionSell, models.ActionHold:
	default:
		return fmt.Errorf("signal %s: unknown action %q", sig.Symbol, sig.Action)
	}
	return nil
}
