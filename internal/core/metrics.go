package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Metrics struct {
	registry *prometheus.Registry

	RelayRequests  *prometheus.CounterVec
	RelayLatency   *prometheus.HistogramVec
	Submissions    *prometheus.CounterVec
	ReplyMissing   prometheus.Counter
	EmotionQueries *prometheus.CounterVec
	TokenUsage     *prometheus.CounterVec
}

// NewMetrics builds an isolated registry so several cores can live in one process.
func NewMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RelayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "relay_requests_total",
			Help:      "Reply relay requests by contract, driver and outcome.",
		}, []string{"contract", "driver", "status"}),
		RelayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "relay_duration_seconds",
			Help:      "Time from relay request to the last byte handed back.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"contract"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "entry_submissions_total",
			Help:      "Journal entry submissions by flow and result.",
		}, []string{"flow", "result"}),
		ReplyMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "entries_without_reply_total",
			Help:      "Entries saved without an Oto reply.",
		}),
		EmotionQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "emotion_queries_total",
			Help:      "Emotion analysis calls by loaded state.",
		}, []string{"loaded"}),
		TokenUsage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "token_usage_total",
			Help:      "Relay tokens by driver and kind (prompt, completion). Estimated when the driver reports none.",
		}, []string{"driver", "kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RelayRequests,
		m.RelayLatency,
		m.Submissions,
		m.ReplyMissing,
		m.EmotionQueries,
		m.TokenUsage,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
