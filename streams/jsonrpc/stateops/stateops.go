// Package stateops is the facade over the two halves of snapshot transport:
// Diff computes the delta between two pair-state snapshots (the server side)
// and Patch reapplies a delta to reconstruct the present (the client side).
// Both sides share one schema, so a diff produced here always patches there.
package stateops

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tianlin0725/coralswap-sdk/pair"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the dependencies of a StateOps.
type Config struct {
	Logger   Logger
	Registry prometheus.Registerer
}

func (c *Config) validate() error {
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	return nil
}

// StateOps diffs and patches pair-state snapshots, instrumented.
type StateOps struct {
	logger  Logger
	metrics *Metrics
}

// NewStateOps creates a StateOps and registers its metrics.
func NewStateOps(cfg *Config) (*StateOps, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &StateOps{
		logger:  cfg.Logger,
		metrics: NewMetrics(cfg.Registry),
	}, nil
}

// Diff computes the delta between two snapshots.
func (ops *StateOps) Diff(old, new []pair.Pair) (pair.SystemDiff, error) {
	timer := prometheus.NewTimer(ops.metrics.diffDuration)
	defer timer.ObserveDuration()

	diff := pair.Differ(old, new)
	ops.metrics.changes.WithLabelValues("addition").Add(float64(len(diff.Additions)))
	ops.metrics.changes.WithLabelValues("update").Add(float64(len(diff.Updates)))
	ops.metrics.changes.WithLabelValues("deletion").Add(float64(len(diff.Deletions)))

	ops.logger.Debug("snapshot diffed",
		"pairs_old", len(old), "pairs_new", len(new),
		"additions", len(diff.Additions), "updates", len(diff.Updates), "deletions", len(diff.Deletions),
	)
	return diff, nil
}

// Patch applies a delta to a previous snapshot, returning a new snapshot that
// shares no memory with its inputs.
func (ops *StateOps) Patch(prevState []pair.Pair, diff pair.SystemDiff) ([]pair.Pair, error) {
	timer := prometheus.NewTimer(ops.metrics.patchDuration)
	defer timer.ObserveDuration()
	return pair.Patcher(prevState, diff)
}

// Metrics instruments the diff/patch hot path.
type Metrics struct {
	diffDuration  prometheus.Histogram
	patchDuration prometheus.Histogram
	changes       *prometheus.CounterVec
}

// NewMetrics creates and registers the stateops metrics on the given registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coralswap",
			Subsystem: "stateops",
			Name:      "diff_duration_seconds",
			Help:      "Time spent computing a snapshot diff.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		patchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coralswap",
			Subsystem: "stateops",
			Name:      "patch_duration_seconds",
			Help:      "Time spent applying a snapshot diff.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "coralswap",
				Subsystem: "stateops",
				Name:      "diff_changes_total",
				Help:      "Pair changes emitted by the differ, by kind.",
			},
			[]string{"kind"},
		),
	}
	registry.MustRegister(m.diffDuration, m.patchDuration, m.changes)
	return m
}
