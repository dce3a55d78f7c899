package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	"SignalEngine/pkg/config"
	applogger "SignalEngine/pkg/logger"
)

var ErrScannerRunning = errors.New("scanner: already running")

// SignalListener is notified after a fresh signal has been stored.
// Implementations must not block the scan.
type SignalListener interface {
	OnSignal(ctx context.Context, sig models.AggregateSignal)
}

// CycleReport summarizes one pass over the watchlist.
type CycleReport struct {
	Updated []string
	Skipped map[string]string
}

// Scanner walks the watchlist one asset at a time, fetching the three
// timeframes of each asset concurrently. It is the only writer of the store.
type Scanner struct {
	source    domrepo.CandleSource
	agg       *SignalAggregator
	store     domrepo.SignalStore
	listeners []SignalListener
	metrics   domrepo.Metrics
	l         *applogger.Logger
	cfg       config.ScannerConfig
	running   atomic.Bool
}

func NewScanner(source domrepo.CandleSource, agg *SignalAggregator, store domrepo.SignalStore, cfg config.ScannerConfig, metrics domrepo.Metrics, l *applogger.Logger, listeners ...SignalListener) *Scanner {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Scanner{
		source:    source,
		agg:       agg,
		store:     store,
		listeners: listeners,
		metrics:   metrics,
		l:         l.With(applogger.String("component", "scanner")),
		cfg:       cfg,
	}
}

// Run scans until ctx is cancelled. Only one Run may be active per Scanner.
func (s *Scanner) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScannerRunning
	}
	defer s.running.Store(false)

	s.l.Info("scanner started",
		applogger.Strings("watchlist", s.cfg.Watchlist),
		applogger.Duration("cycle_delay_ms", s.cfg.CycleDelay),
	)
	for {
		s.scan(ctx)
		if err := sleepCtx(ctx, s.cfg.CycleDelay); err != nil {
			s.l.Info("scanner stopped")
			return nil
		}
	}
}

// ScanOnce runs a single cycle. It fails with ErrScannerRunning while Run is active.
func (s *Scanner) ScanOnce(ctx context.Context) (CycleReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return CycleReport{}, ErrScannerRunning
	}
	defer s.running.Store(false)
	return s.scan(ctx), nil
}

func (s *Scanner) scan(ctx context.Context) CycleReport {
	start := time.Now()
	report := CycleReport{Skipped: map[string]string{}}

	for i, symbol := range s.cfg.Watchlist {
		if ctx.Err() != nil {
			break
		}
		if i > 0 {
			if err := sleepCtx(ctx, s.cfg.SymbolDelay); err != nil {
				break
			}
		}

		sig, err := s.processAsset(ctx, symbol)
		if err != nil {
			report.Skipped[symbol] = err.Error()
			s.metrics.RecordError("scan_asset")
			s.l.Warn("asset skipped", applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		report.Updated = append(report.Updated, symbol)
		s.notify(ctx, sig)
	}

	s.metrics.RecordLatency("scan_cycle", time.Since(start).Seconds())
	s.l.Debug("scan cycle done",
		applogger.Int("updated", len(report.Updated)),
		applogger.Int("skipped", len(report.Skipped)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return report
}

// processAsset resolves one symbol under the asset timeout. A panic inside
// scoring is converted to an error so the rest of the watchlist proceeds.
func (s *Scanner) processAsset(ctx context.Context, symbol string) (sig models.AggregateSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scoring %s: %v", symbol, r)
		}
	}()

	if s.cfg.AssetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AssetTimeout)
		defer cancel()
	}
	start := time.Now()

	set, err := s.fetchAll(ctx, symbol)
	if err != nil {
		return models.AggregateSignal{}, err
	}

	fresh, err := s.agg.Aggregate(ctx, symbol, set)
	if err != nil {
		return models.AggregateSignal{}, err
	}
	stored := s.store.Put(fresh)

	s.metrics.RecordSignal(symbol, stored.Action)
	s.metrics.RecordScore(symbol, stored.Score)
	s.metrics.RecordLastPrice(symbol, stored.Price)
	s.metrics.RecordLatency("scan_asset", time.Since(start).Seconds())
	s.l.Info("signal updated",
		applogger.String("symbol", symbol),
		applogger.Float64("price", stored.Price),
		applogger.Float64("score", stored.Score),
		applogger.String("action", string(stored.Action)),
		applogger.String("opinion", stored.Opinion.String()),
		applogger.Uint64("version", stored.Version),
	)
	return stored, nil
}

type fetchResult struct {
	name    string
	candles []models.Candle
	err     error
}

// fetchAll issues the three timeframe fetches concurrently. The short
// timeframe is required; long and macro degrade to empty sets.
func (s *Scanner) fetchAll(ctx context.Context, symbol string) (CandleSet, error) {
	reqs := []struct {
		name     string
		interval domrepo.Interval
		limit    int
	}{
		{"short", domrepo.Interval(s.cfg.ShortInterval), s.cfg.ShortLimit},
		{"long", domrepo.Interval(s.cfg.LongInterval), s.cfg.LongLimit},
		{"macro", domrepo.Interval(s.cfg.MacroInterval), s.cfg.MacroLimit},
	}

	ch := make(chan fetchResult, len(reqs))
	var wg sync.WaitGroup
	for _, r := range reqs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fctx, cancel := s.fetchContext(ctx)
			defer cancel()
			cs, err := s.source.FetchCandles(fctx, symbol, r.interval, r.limit)
			ch <- fetchResult{name: r.name, candles: cs, err: err}
		}()
	}
	go func() { wg.Wait(); close(ch) }()

	var (
		set      CandleSet
		shortErr error
	)
	for res := range ch {
		if res.err != nil {
			s.metrics.RecordError("fetch_" + res.name)
			s.l.Debug("candle fetch failed",
				applogger.String("symbol", symbol),
				applogger.String("timeframe", res.name),
				applogger.Error(res.err),
			)
		}
		switch res.name {
		case "short":
			set.Short, shortErr = res.candles, res.err
		case "long":
			set.Long = res.candles
		case "macro":
			set.Macro = res.candles
		}
	}

	if shortErr != nil {
		return CandleSet{}, fmt.Errorf("fetch short candles: %w", shortErr)
	}
	if len(set.Short) == 0 {
		return CandleSet{}, errors.New("fetch short candles: empty result")
	}
	if len(set.Long) == 0 || len(set.Macro) == 0 {
		s.l.Debug("degraded candle set",
			applogger.String("symbol", symbol),
			applogger.Int("long", len(set.Long)),
			applogger.Int("macro", len(set.Macro)),
		)
	}
	return set, nil
}

func (s *Scanner) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.FetchTimeout)
}

func (s *Scanner) notify(ctx context.Context, sig models.AggregateSignal) {
	for _, ln := range s.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.metrics.RecordError("listener_panic")
					s.l.Error("signal listener panic", applogger.String("symbol", sig.Symbol), applogger.Any("panic", r))
				}
			}()
			ln.OnSignal(ctx, sig)
		}()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
