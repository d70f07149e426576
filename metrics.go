package cronium

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments the clients report into. Attach
// one to Config.Metrics and register it with your registry; a nil Metrics
// disables instrumentation entirely.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics builds the instrument set. The instruments are not registered
// anywhere; call Register to attach them to a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cronium_sdk_requests_total",
				Help: "Completed Runtime API calls by operation and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cronium_sdk_retries_total",
				Help: "Retry attempts by operation.",
			},
			[]string{"operation"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cronium_sdk_request_duration_seconds",
				Help:    "End-to-end call duration including retries and backoff.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Register attaches the instruments to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.requestsTotal, m.retriesTotal, m.requestDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) record(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(op, outcome).Inc()
	m.requestDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) recordRetry(op string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(op).Inc()
}
