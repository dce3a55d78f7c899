// Package server runs the engine's long-lived components and shuts them down in order.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	applogger "SignalEngine/pkg/logger"
)

// Runner blocks until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// Worker is a background component bound to the app context.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}

// Flusher drains buffered work on shutdown.
type Flusher interface {
	Flush(ctx context.Context) bool
}

// Service is an externally driven listener (HTTP server, Kafka consumer).
type Service interface {
	Start() error
	Stop(ctx context.Context) error
}

// Listener is a Service that may fail after Start.
type Listener interface {
	Service
	Err() <-chan error
}

type namedWorker struct {
	name string
	w    Worker
}

type namedService struct {
	name string
	s    Service
}

// App owns the scan loop, its background workers and the serving layers.
type App struct {
	l               *applogger.Logger
	scanner         Runner
	http            Listener
	workers         []namedWorker
	services        []namedService
	shutdownTimeout time.Duration
}

type AppOption func(*App)

// WithWorker adds a background worker. Workers start before the scanner and stop after it.
func WithWorker(name string, w Worker) AppOption {
	return func(a *App) {
		if w != nil {
			a.workers = append(a.workers, namedWorker{name: name, w: w})
		}
	}
}

// WithService adds a listener started after the workers, e.g. a Kafka consumer.
func WithService(name string, s Service) AppOption {
	return func(a *App) {
		if s != nil {
			a.services = append(a.services, namedService{name: name, s: s})
		}
	}
}

func WithShutdownTimeout(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

func New(l *applogger.Logger, scanner Runner, http Listener, opts ...AppOption) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{l: l, scanner: scanner, http: http, shutdownTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts everything and blocks until ctx is done, the HTTP listener
// fails or the scanner exits. Shutdown runs in reverse start order.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, nw := range a.workers {
		nw.w.Start(runCtx)
		a.l.Info("worker started", applogger.String("worker", nw.name))
	}

	var started []namedService
	for _, ns := range a.services {
		if err := ns.s.Start(); err != nil {
			a.l.Warn("service start failed, continuing without it",
				applogger.String("service", ns.name), applogger.Error(err))
			continue
		}
		started = append(started, ns)
	}

	var httpErr <-chan error
	if a.http != nil {
		if err := a.http.Start(); err != nil {
			cancel()
			a.shutdown(started)
			return fmt.Errorf("http start: %w", err)
		}
		httpErr = a.http.Err()
	}

	scanDone := make(chan error, 1)
	go func() { scanDone <- a.scanner.Run(runCtx) }()

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
		<-scanDone
	case err := <-httpErr:
		runErr = fmt.Errorf("http server: %w", err)
		cancel()
		<-scanDone
	case err := <-scanDone:
		if err != nil {
			runErr = fmt.Errorf("scanner: %w", err)
		}
	}
	cancel()

	if err := a.shutdown(started); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

func (a *App) shutdown(started []namedService) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	if a.http != nil {
		if err := a.http.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].s.Stop(ctx); err != nil {
			a.l.Warn("service stop error", applogger.String("service", started[i].name), applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.workers) - 1; i >= 0; i-- {
		nw := a.workers[i]
		nw.w.Stop()
		if f, ok := nw.w.(Flusher); ok && !f.Flush(ctx) {
			a.l.Warn("worker flush incomplete", applogger.String("worker", nw.name))
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
