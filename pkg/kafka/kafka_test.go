package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type countingHandler struct {
	failures int
	calls    int
}

func (h *countingHandler) Topic() string { return "engine.reasoning" }

func (h *countingHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("boom")
	}
	return nil
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return c
}

func TestHandleWithRetry(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		failures  int
		wantErr   bool
		wantCalls int
	}{
		{"first try", 3, 0, false, 1},
		{"recovers", 3, 2, false, 3},
		{"exhausted", 2, 5, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestConsumer(t, tt.retries)
			h := &countingHandler{failures: tt.failures}
			err := c.handleWithRetry(h, kafka.Message{Value: []byte("{}")})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if h.calls != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", h.calls, tt.wantCalls)
			}
		})
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	if _, err := NewConsumer(); !errors.Is(err, errNoBrokers) {
		t.Fatalf("err = %v, want errNoBrokers", err)
	}
}

func TestProducerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []ProducerOption
		wantErr bool
	}{
		{"defaults with brokers", []ProducerOption{WithBrokers([]string{"k:9092"})}, false},
		{"no brokers", nil, true},
		{"bad acks", []ProducerOption{WithBrokers([]string{"k:9092"}), WithRequiredAcks(2)}, true},
		{"bad codec", []ProducerOption{WithBrokers([]string{"k:9092"}), WithCompression("brotli")}, true},
		{"no compression", []ProducerOption{WithBrokers([]string{"k:9092"}), WithCompression("none")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultProducerConfig()
			for _, opt := range tt.opts {
				opt(cfg)
			}
			if err := cfg.validate(); (err != nil) != tt.wantErr {
				t.Fatalf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBatchingKeepsDefaults(t *testing.T) {
	cfg := defaultProducerConfig()
	WithBatching(0, 4096, 0)(cfg)
	if cfg.BatchSize != 100 || cfg.BatchBytes != 4096 || cfg.Linger != 50*time.Millisecond {
		t.Fatalf("batching = %d/%d/%v", cfg.BatchSize, cfg.BatchBytes, cfg.Linger)
	}
}

func TestHookChainOrderAndPanic(t *testing.T) {
	var order []string
	mk := func(name string) HookFuncs {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before:"+name)
				return ctx, km, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after:"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))
	ctx, km, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	if string(data) != "ab" {
		t.Fatalf("data = %q", data)
	}
	chain.AfterHandle(ctx, "t", km, data, nil)
	want := []string{"before:a", "before:b", "after:b", "after:a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	var notified int
	panicky := HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("bad hook")
		},
		Err: func(context.Context, string, kafka.Message, []byte, error) { notified++ },
	}
	_, _, _, err = NewHookChain(panicky).BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	if !errors.As(err, &he) || he.Code != "ERR_PANIC" {
		t.Fatalf("err = %v, want ERR_PANIC", err)
	}
	if notified != 1 {
		t.Fatalf("OnError calls = %d", notified)
	}
}

func TestLoggingHookStampsContext(t *testing.T) {
	hook := NewLoggingHook(nil)
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := hook.BeforeHandle(context.Background(), "t", km, nil)
	if err != nil {
		t.Fatalf("before: %v", err)
	}
	if TraceID(ctx) != "abc" {
		t.Fatalf("trace = %q", TraceID(ctx))
	}
	if _, ok := StartTime(ctx); !ok {
		t.Fatalf("start time missing")
	}
}

func TestBackoffWithJitterBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		if d <= 0 || d > 80*time.Millisecond {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}
