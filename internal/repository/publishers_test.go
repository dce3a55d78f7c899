package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"SignalEngine/internal/domain/models"
	"SignalEngine/pkg/cache"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Put(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.err != nil {
		return c.err
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key], c.ttls[key] = b, ttl
	c.mu.Unlock()
	return nil
}

func (c *memCache) Fetch(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) FetchMany(_ context.Context, keys []string) (map[string][]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string][]byte{}
	for _, k := range keys {
		if b, ok := c.data[k]; ok {
			out[k] = b
		}
	}
	return out, nil
}

func (c *memCache) Remove(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.mu.Unlock()
	return nil
}

type recordedMessage struct {
	topic string
	key   []byte
	value interface{}
}

type fakeProducer struct {
	msgs   []recordedMessage
	err    error
	closed bool
}

func (p *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, recordedMessage{topic, key, value})
	return nil
}

func (p *fakeProducer) Close() error {
	p.closed = true
	return nil
}

type fakeSink struct {
	published []models.AggregateSignal
	err       error
	closeErr  error
}

func (s *fakeSink) Publish(_ context.Context, sig models.AggregateSignal) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, sig)
	return nil
}

func (s *fakeSink) Close() error { return s.closeErr }

func sampleSignal(symbol string) models.AggregateSignal {
	return models.AggregateSignal{
		Symbol:    symbol,
		Price:     101.5,
		Score:     63,
		Action:    models.ActionBuy,
		Opinion:   models.Pump,
		Version:   3,
		UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Plan:      models.FibonacciPlan{TP: 104, SL: 95, DCA1: 99, DCA2: 97, IsDynamic: true},
	}
}

func TestKafkaSignalPublisherEnvelope(t *testing.T) {
	prod := &fakeProducer{}
	pub := NewKafkaSignalPublisher(prod, "engine.signals")
	pub.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 1, 0, time.UTC) }

	if err := pub.Publish(context.Background(), sampleSignal("BTCUSDT")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(prod.msgs) != 1 {
		t.Fatalf("messages = %d", len(prod.msgs))
	}
	m := prod.msgs[0]
	if m.topic != "engine.signals" || string(m.key) != "BTCUSDT" {
		t.Fatalf("topic/key = %s/%s", m.topic, m.key)
	}
	ev, ok := m.value.(SignalEvent)
	if !ok {
		t.Fatalf("value type %T", m.value)
	}
	if ev.Type != SignalUpdatedEvent || ev.ID == "" || ev.Signal.Symbol != "BTCUSDT" {
		t.Fatalf("event = %+v", ev)
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"opinion":"PUMP"`) {
		t.Fatalf("opinion not encoded as label: %s", raw)
	}

	_ = pub.Close()
	if !prod.closed {
		t.Fatalf("producer not closed")
	}
}

func TestRedisSignalMirrorRoundTrip(t *testing.T) {
	c := newMemCache()
	m := NewRedisSignalMirror(c, 5*time.Minute)
	ctx := context.Background()

	if err := m.Publish(ctx, sampleSignal("ETHUSDT")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if c.ttls["signal:ETHUSDT"] != 5*time.Minute {
		t.Fatalf("ttl = %v", c.ttls["signal:ETHUSDT"])
	}

	got, err := m.Restore(ctx, []string{"ETHUSDT", "SOLUSDT"})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("restored %d signals, want 1", len(got))
	}
	if got[0].Opinion != models.Pump || got[0].Version != 3 || !got[0].Plan.IsDynamic {
		t.Fatalf("restored = %+v", got[0])
	}
}

func TestRedisSignalMirrorRestoreSkipsBadEntries(t *testing.T) {
	c := newMemCache()
	c.data["signal:BTCUSDT"] = []byte("{not json")
	c.data["signal:SOLUSDT"], _ = json.Marshal(sampleSignal("ETHUSDT"))
	m := NewRedisSignalMirror(c, time.Minute)

	got, err := m.Restore(context.Background(), []string{"BTCUSDT", "SOLUSDT"})
	if err == nil || !strings.Contains(err.Error(), "BTCUSDT") {
		t.Fatalf("err = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("restored %d signals, want 0", len(got))
	}
}

func TestRedisSignalMirrorPublishError(t *testing.T) {
	c := newMemCache()
	c.err = errors.New("down")
	if err := NewRedisSignalMirror(c, time.Minute).Publish(context.Background(), sampleSignal("BTCUSDT")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFanoutPublisherContinuesPastFailure(t *testing.T) {
	bad := &fakeSink{err: errors.New("kafka down")}
	good := &fakeSink{}
	f := NewFanoutPublisher(bad, nil, good)
	if f.Len() != 2 {
		t.Fatalf("len = %d", f.Len())
	}

	err := f.Publish(context.Background(), sampleSignal("BTCUSDT"))
	if err == nil || !errors.Is(err, bad.err) {
		t.Fatalf("err = %v", err)
	}
	if len(good.published) != 1 {
		t.Fatalf("healthy sink skipped")
	}

	good.closeErr = errors.New("close")
	if err := f.Close(); !errors.Is(err, good.closeErr) {
		t.Fatalf("close err = %v", err)
	}
}

func TestValidTableName(t *testing.T) {
	for _, name := range []string{"candles", "signals.candles", "db_1.t_2"} {
		if err := validTableName(name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	for _, name := range []string{"", "a.b.c", "x; DROP TABLE y", "1abc"} {
		if err := validTableName(name); err == nil {
			t.Fatalf("%q accepted", name)
		}
	}
}
