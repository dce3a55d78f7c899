package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeScanner struct {
	rec *recorder
	err error
}

func (s fakeScanner) Run(ctx context.Context) error {
	s.rec.add("scan:start")
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	s.rec.add("scan:stop")
	return nil
}

type fakeWorker struct {
	name string
	rec  *recorder
}

func (w fakeWorker) Start(context.Context)      { w.rec.add(w.name + ":start") }
func (w fakeWorker) Stop()                      { w.rec.add(w.name + ":stop") }
func (w fakeWorker) Flush(context.Context) bool { w.rec.add(w.name + ":flush"); return true }

type fakeService struct {
	name     string
	rec      *recorder
	startErr error
}

func (s fakeService) Start() error {
	s.rec.add(s.name + ":start")
	return s.startErr
}

func (s fakeService) Stop(context.Context) error {
	s.rec.add(s.name + ":stop")
	return nil
}

type fakeListener struct {
	fakeService
	errCh chan error
}

func (l fakeListener) Err() <-chan error { return l.errCh }

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunShutdownOrder(t *testing.T) {
	rec := &recorder{}
	http := fakeListener{fakeService{name: "http", rec: rec}, make(chan error)}
	app := New(nil, fakeScanner{rec: rec}, http,
		WithWorker("pipeline", fakeWorker{name: "pipeline", rec: rec}),
		WithWorker("updater", fakeWorker{name: "updater", rec: rec}),
		WithService("consumer", fakeService{name: "consumer", rec: rec}),
		WithShutdownTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.list()) < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{
		"pipeline:start", "updater:start", "consumer:start", "http:start", "scan:start",
		"scan:stop", "http:stop", "consumer:stop",
		"updater:stop", "updater:flush", "pipeline:stop", "pipeline:flush",
	}
	if got := rec.list(); !equal(got, want) {
		t.Fatalf("events = %v\nwant     %v", got, want)
	}
}

func TestRunSkipsFailedService(t *testing.T) {
	rec := &recorder{}
	failing := fakeService{name: "consumer", rec: rec, startErr: errors.New("no brokers")}
	scanErr := errors.New("boom")
	app := New(nil, fakeScanner{rec: rec, err: scanErr}, nil, WithService("consumer", failing))

	err := app.Run(context.Background())
	if !errors.Is(err, scanErr) {
		t.Fatalf("err = %v", err)
	}
	for _, e := range rec.list() {
		if e == "consumer:stop" {
			t.Fatalf("stopped a service that never started")
		}
	}
}

func TestRunReturnsHTTPFailure(t *testing.T) {
	rec := &recorder{}
	errCh := make(chan error, 1)
	errCh <- errors.New("address in use")
	http := fakeListener{fakeService{name: "http", rec: rec}, errCh}

	err := New(nil, fakeScanner{rec: rec}, http).Run(context.Background())
	if err == nil {
		t.Fatalf("expected http failure")
	}
}
