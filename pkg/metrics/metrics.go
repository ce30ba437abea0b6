// Package metrics defines the Prometheus collectors of the retention engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "casino_retention"

// Metrics groups every collector. A zero registry is fine for tests: the
// collectors work unregistered.
type Metrics struct {
	BetsTotal            prometheus.Counter
	ChurnTotal           *prometheus.CounterVec
	FlagsTotal           *prometheus.CounterVec
	FlagsDeduplicated    prometheus.Counter
	OracleCalls          *prometheus.CounterVec
	Assessments          *prometheus.CounterVec
	RiskScore            prometheus.Histogram
	Proposals            *prometheus.CounterVec
	ComplianceRejections *prometheus.CounterVec
	DeliveryAttempts     *prometheus.CounterVec
	Interventions        *prometheus.CounterVec
	Outcomes             *prometheus.CounterVec
	ObserverDropped      prometheus.Counter
	TickDuration         prometheus.Histogram
	ActiveActors         prometheus.Gauge
	DelayedTasks         prometheus.Gauge
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		BetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bets_total",
			Help:      "Settled bets.",
		}),
		ChurnTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "churn_total",
			Help:      "Actors churned, by reason.",
		}, []string{"reason"}),
		FlagsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_total",
			Help:      "Flags raised by the monitor.",
		}, []string{"reason", "source"}),
		FlagsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_deduplicated_total",
			Help:      "Flags suppressed because one was already open.",
		}),
		OracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Reasoning oracle calls, by operation and result.",
		}, []string{"operation", "result"}),
		Assessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_assessments_total",
			Help:      "Risk assessments, by confidence and escalation.",
		}, []string{"confidence", "escalated"}),
		RiskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "risk_score",
			Help:      "Distribution of risk scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		Proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_total",
			Help:      "Designer outcomes, by intervention type (none when infeasible).",
		}, []string{"type"}),
		ComplianceRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compliance_rejections_total",
			Help:      "Validator rejections, by first failing check.",
		}, []string{"reason"}),
		DeliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Delivery attempts, by action and result.",
		}, []string{"action", "result"}),
		Interventions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interventions_total",
			Help:      "Interventions reaching a status.",
		}, []string{"status"}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Outcome labels written by the analyzer.",
		}, []string{"label"}),
		ObserverDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_dropped_total",
			Help:      "Observer events dropped for slow subscribers.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent per simulation tick.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		ActiveActors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_actors",
			Help:      "Actors that have not churned.",
		}),
		DelayedTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delayed_tasks",
			Help:      "Analyzer tasks waiting in the delay queue.",
		}),
	}
}

// Collectors lists every collector for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.BetsTotal,
		m.ChurnTotal,
		m.FlagsTotal,
		m.FlagsDeduplicated,
		m.OracleCalls,
		m.Assessments,
		m.RiskScore,
		m.Proposals,
		m.ComplianceRejections,
		m.DeliveryAttempts,
		m.Interventions,
		m.Outcomes,
		m.ObserverDropped,
		m.TickDuration,
		m.ActiveActors,
		m.DelayedTasks,
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// OrNew returns m, or fresh unregistered collectors when m is nil.
func OrNew(m *Metrics) *Metrics {
	if m == nil {
		return New()
	}
	return m
}
