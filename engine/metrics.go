package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the engine's mutation path. Registration failures are
// programmer errors (duplicate engine on one registry), so MustRegister.
type Metrics struct {
	mutations        *prometheus.CounterVec
	mutationDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine metrics on the given registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coralswap",
				Subsystem: "engine",
				Name:      "mutations_total",
				Help:      "Pair mutations by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		mutationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "coralswap",
				Subsystem: "engine",
				Name:      "mutation_duration_seconds",
				Help:      "Time spent inside a pair's critical section.",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"op"},
		),
	}
	registry.MustRegister(m.mutations, m.mutationDuration)
	return m
}

func (m *Metrics) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}
