package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
	pkgkafka "SignalEngine/pkg/kafka"
)

// PatchSink receives externally produced reasoning patches.
type PatchSink interface {
	Submit(p models.ReasoningPatch) bool
}

// ReasoningPatchHandler consumes reasoning patches from Kafka.
type ReasoningPatchHandler struct {
	topic   string
	sink    PatchSink
	metrics domrepo.Metrics
}

func NewReasoningPatchHandler(topic string, sink PatchSink, metrics domrepo.Metrics) *ReasoningPatchHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &ReasoningPatchHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *ReasoningPatchHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, version, reasoning:{opinion, text, generated_at}}
func (h *ReasoningPatchHandler) Handle(_ context.Context, b []byte) error {
	var p models.ReasoningPatch
	if err := json.Unmarshal(b, &p); err != nil {
		// Malformed payloads are not retried.
		h.metrics.RecordError("patch_unmarshal")
		return nil
	}
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" || p.Version == 0 || p.Reasoning.Text == "" {
		h.metrics.RecordError("patch_invalid")
		return nil
	}
	if !p.Reasoning.GeneratedAt.IsZero() {
		h.metrics.RecordLatency("patch_e2e", time.Since(p.Reasoning.GeneratedAt).Seconds())
	}
	h.sink.Submit(p)
	return nil
}

var _ pkgkafka.MessageHandler = (*ReasoningPatchHandler)(nil)
