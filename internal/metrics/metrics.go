package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	IssuedTotal       prometheus.Counter
	PollTotal         *prometheus.CounterVec // result=pending|none|expired
	AckTotal          *prometheus.CounterVec // result=accepted|mismatch
	AuthFailuresTotal *prometheus.CounterVec // role=admin|device

	OpLatencyMS *prometheus.HistogramVec // op=issue|poll|ack
}

// New creates the relay collectors and registers them on reg. A nil reg
// leaves them unregistered, which keeps parallel tests independent.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_commands_issued_total",
			Help: "Total unlock commands issued",
		}),
		PollTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_polls_total",
				Help: "Total command polls by observed result",
			},
			[]string{"result"},
		),
		AckTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_acks_total",
				Help: "Total acknowledgments by result",
			},
			[]string{"result"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_auth_failures_total",
				Help: "Total rejected credentials by role",
			},
			[]string{"role"},
		),
		OpLatencyMS: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_op_latency_ms",
				Help:    "Latency of command operations (ms)",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"op"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.IssuedTotal,
			m.PollTotal,
			m.AckTotal,
			m.AuthFailuresTotal,
			m.OpLatencyMS,
		)
	}

	return m
}
