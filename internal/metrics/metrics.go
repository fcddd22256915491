package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "ladder"

type Metrics struct {
	Registry *prometheus.Registry

	OutcomesApplied   *prometheus.CounterVec
	OutcomesReplayed  prometheus.Counter
	VersionConflicts  prometheus.Counter
	StaleFailures     prometheus.Counter
	ProgressionEvents *prometheus.CounterVec
	RewardFailures    prometheus.Counter
}

// New builds the collectors on a private registry so tests can create as many as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		OutcomesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_applied_total",
			Help:      "Match outcomes committed to the rating store, by result.",
		}, []string{"result"}),
		OutcomesReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_replayed_total",
			Help:      "Resubmitted outcomes answered from a stored receipt.",
		}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Compare-and-set attempts rejected because the rating version moved.",
		}),
		StaleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_failures_total",
			Help:      "Outcomes rejected after exhausting version-conflict retries.",
		}),
		ProgressionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progression_events_total",
			Help:      "Promotion and demotion events emitted, by type.",
		}, []string{"type"}),
		RewardFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reward_failures_total",
			Help:      "Reward awards that could not be delivered.",
		}),
	}
	reg.MustRegister(
		m.OutcomesApplied,
		m.OutcomesReplayed,
		m.VersionConflicts,
		m.StaleFailures,
		m.ProgressionEvents,
		m.RewardFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
