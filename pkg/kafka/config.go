package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	applogger "SignalEngine/pkg/logger"
)

var errNoBrokers = errors.New("kafka: brokers are required")

// ProducerConfig is the writer setup of a Producer.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int // -1 all, 0 none, 1 leader
	Compression  string
	MaxAttempts  int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	BatchSize    int
	BatchBytes   int
	Linger       time.Duration
	Async        bool
	HashByKey    bool
	Logger       *applogger.Logger
}

type ProducerOption func(*ProducerConfig)

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "snappy",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		Linger:       50 * time.Millisecond,
	}
}

func (c *ProducerConfig) validate() error {
	if len(c.Brokers) == 0 {
		return errNoBrokers
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("kafka: required acks %d not in -1..1", c.RequiredAcks)
	}
	if _, ok := compressionCodecs[c.Compression]; !ok {
		return fmt.Errorf("kafka: unknown compression %q", c.Compression)
	}
	return nil
}

var compressionCodecs = map[string]kafka.Compression{
	"":       0,
	"none":   0,
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) { c.Compression = codec }
}

func WithRequiredAcks(acks int) ProducerOption {
	return func(c *ProducerConfig) { c.RequiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *ProducerConfig) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithBatching tunes writer batching. Zero values keep the defaults.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if bytes > 0 {
			c.BatchBytes = bytes
		}
		if linger > 0 {
			c.Linger = linger
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithAsync makes Publish return before the broker acknowledges.
func WithAsync(on bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = on }
}

// WithHashByKey routes equal keys to one partition so per-symbol order holds.
func WithHashByKey(on bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = on }
}

func WithProducerLogger(l *applogger.Logger) ProducerOption {
	return func(c *ProducerConfig) { c.Logger = l }
}

// ConsumerConfig is the reader and worker setup of a Consumer.
type ConsumerConfig struct {
	Brokers     []string
	GroupID     string
	WorkerCount int
	BufferSize  int
	RetryMax    int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	DLQTopic    string
	MinBytes    int
	MaxBytes    int
	Logger      *applogger.Logger
}

type ConsumerOption func(*ConsumerConfig)

func defaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		GroupID:     "signal-engine",
		WorkerCount: 1,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
}

func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) { c.Brokers = brokers }
}

func WithConsumerGroupID(id string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if id != "" {
			c.GroupID = id
		}
	}
}

func WithConsumerWorkers(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.WorkerCount = n
		}
	}
}

// WithConsumerRetry sets how often a failing message is retried and the
// jittered backoff range between attempts.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		if max >= 0 {
			c.RetryMax = max
		}
		if backoffMin > 0 {
			c.BackoffMin = backoffMin
		}
		if backoffMax >= c.BackoffMin {
			c.BackoffMax = backoffMax
		}
	}
}

// WithConsumerDLQ names the topic that receives messages still failing after all retries.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) { c.DLQTopic = topic }
}

func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if minBytes > 0 {
			c.MinBytes = minBytes
		}
		if maxBytes >= c.MinBytes {
			c.MaxBytes = maxBytes
		}
	}
}

func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

func WithConsumerLogger(l *applogger.Logger) ConsumerOption {
	return func(c *ConsumerConfig) { c.Logger = l }
}
