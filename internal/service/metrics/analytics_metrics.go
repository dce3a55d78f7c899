package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signalengine",
			Subsystem: "upstream",
			Name:      "latency_seconds",
			Help:      "Latency of outbound calls by service and endpoint",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)

	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signalengine",
			Subsystem: "upstream",
			Name:      "errors_total",
			Help:      "Failed outbound calls by service and endpoint",
		},
		[]string{"service", "endpoint"},
	)
)

// Register adds the upstream collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(UpstreamLatency, UpstreamErrors)
	})
}

// ObserveUpstream records one outbound call.
func ObserveUpstream(service, endpoint string, start time.Time, err error) {
	UpstreamLatency.WithLabelValues(service, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		UpstreamErrors.WithLabelValues(service, endpoint).Inc()
	}
}
