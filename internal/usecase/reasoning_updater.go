package usecase

import (
	"context"
	"sync"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	domsvc "SignalEngine/internal/domain/service"
	applogger "SignalEngine/pkg/logger"
)

// ReasoningJob asks for prose about one stored signal version.
type ReasoningJob struct {
	Symbol  string
	Version uint64
	Request models.ReasoningRequest
}

// ReasoningUpdater generates reasoning off the scan path and attaches it to
// the store only while the targeted version is still current.
type ReasoningUpdater struct {
	reasoner domsvc.Reasoner
	store    domrepo.SignalStore
	metrics  domrepo.Metrics
	l        *applogger.Logger
	timeout  time.Duration
	workers  int
	now      func() time.Time

	jobs    chan ReasoningJob
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
}

func NewReasoningUpdater(reasoner domsvc.Reasoner, store domrepo.SignalStore, metrics domrepo.Metrics, l *applogger.Logger, workers, queueSize int, timeout time.Duration) *ReasoningUpdater {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &ReasoningUpdater{
		reasoner: reasoner,
		store:    store,
		metrics:  metrics,
		l:        l.With(applogger.String("component", "reasoning")),
		timeout:  timeout,
		workers:  workers,
		now:      time.Now,
		jobs:     make(chan ReasoningJob, queueSize),
	}
}

// OnSignal queues a reasoning job for sig.
func (u *ReasoningUpdater) OnSignal(_ context.Context, sig models.AggregateSignal) {
	u.Enqueue(ReasoningJob{
		Symbol:  sig.Symbol,
		Version: sig.Version,
		Request: models.ReasoningRequest{
			Symbol: sig.Symbol,
			Score:  sig.Score,
			RSI:    sig.Details.RSI,
			Price:  sig.Price,
			Plan:   sig.Plan,
		},
	})
}

// Enqueue never blocks. It reports false when the queue is full or the
// updater has been stopped.
func (u *ReasoningUpdater) Enqueue(job ReasoningJob) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stopped {
		return false
	}
	select {
	case u.jobs <- job:
		return true
	default:
		u.metrics.RecordError("reasoning_dropped")
		u.l.Debug("reasoning queue full", applogger.String("symbol", job.Symbol))
		return false
	}
}

// Submit applies an externally generated patch. Stale patches are ignored.
func (u *ReasoningUpdater) Submit(p models.ReasoningPatch) bool {
	if p.Reasoning.GeneratedAt.IsZero() {
		p.Reasoning.GeneratedAt = u.now()
	}
	ok := u.store.ApplyReasoning(p)
	if !ok {
		u.metrics.RecordError("reasoning_stale")
		u.l.Debug("stale reasoning patch",
			applogger.String("symbol", p.Symbol),
			applogger.Uint64("version", p.Version),
		)
	}
	return ok
}

// Start launches the workers. They exit when ctx is done or Stop is called.
func (u *ReasoningUpdater) Start(ctx context.Context) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.started || u.stopped {
		return
	}
	u.started = true
	ctx, u.cancel = context.WithCancel(ctx)
	for i := 0; i < u.workers; i++ {
		u.wg.Add(1)
		go u.worker(ctx)
	}
}

// Stop cancels the workers and waits for them. Queued jobs are abandoned.
func (u *ReasoningUpdater) Stop() {
	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		return
	}
	u.stopped = true
	cancel := u.cancel
	u.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	u.wg.Wait()
}

func (u *ReasoningUpdater) worker(ctx context.Context) {
	defer u.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-u.jobs:
			u.process(ctx, job)
		}
	}
}

func (u *ReasoningUpdater) process(ctx context.Context, job ReasoningJob) {
	defer func() {
		if r := recover(); r != nil {
			u.metrics.RecordError("reasoning_panic")
			u.l.Error("reasoning panic", applogger.String("symbol", job.Symbol), applogger.Any("panic", r))
		}
	}()

	// Skip work that is already superseded.
	if cur, ok := u.store.Get(job.Symbol); !ok || cur.Version != job.Version {
		u.metrics.RecordError("reasoning_stale")
		return
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}
	start := time.Now()
	r, err := u.reasoner.Generate(ctx, job.Request)
	u.metrics.RecordLatency("reasoning", time.Since(start).Seconds())
	if err != nil {
		u.metrics.RecordError("reasoning")
		u.l.Debug("reasoning failed", applogger.String("symbol", job.Symbol), applogger.Error(err))
		return
	}
	u.Submit(models.ReasoningPatch{Symbol: job.Symbol, Version: job.Version, Reasoning: r})
}
