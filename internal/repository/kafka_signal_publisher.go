package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
)

const SignalUpdatedEvent = "signal.updated"

// SignalEvent is the envelope written to the signals topic.
type SignalEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	EmittedAt time.Time              `json:"emitted_at"`
	Signal    models.AggregateSignal `json:"signal"`
}

// EventProducer is the subset of the kafka producer the publisher needs.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalPublisher writes each signal keyed by symbol, so per-symbol
// order is kept when the producer hashes by key.
type KafkaSignalPublisher struct {
	producer EventProducer
	topic    string
	now      func() time.Time
}

func NewKafkaSignalPublisher(p EventProducer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: p, topic: topic, now: time.Now}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, sig models.AggregateSignal) error {
	ev := SignalEvent{
		ID:        uuid.NewString(),
		Type:      SignalUpdatedEvent,
		EmittedAt: p.now().UTC(),
		Signal:    sig,
	}
	return p.producer.Publish(ctx, p.topic, []byte(sig.Symbol), ev)
}

func (p *KafkaSignalPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)
