package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
)

// Recorder implements the domain Metrics interface with Prometheus.
type Recorder struct {
	signals   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
	score     *prometheus.GaugeVec
	latency   *prometheus.HistogramVec
}

// New registers the engine metrics on reg, or on the default registry when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalengine_signals_total",
				Help: "Signals produced, by symbol and action",
			},
			[]string{"symbol", "action"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalengine_errors_total",
				Help: "Errors encountered, by kind",
			},
			[]string{"kind"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalengine_last_price",
				Help: "Last scanned price for a symbol",
			},
			[]string{"symbol"},
		),
		score: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalengine_score",
				Help: "Last aggregate score for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalengine_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSignal(symbol string, action models.Action) {
	r.signals.WithLabelValues(symbol, string(action)).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordScore(symbol string, score float64) {
	r.score.WithLabelValues(symbol).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

var _ domrepo.Metrics = (*Recorder)(nil)
