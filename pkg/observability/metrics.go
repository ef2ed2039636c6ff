package observability

import (
	"context"

	"github.com/aretw0/stagehand/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of one experiment process.
type Metrics struct {
	Registry *prometheus.Registry

	trials      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	escalations *prometheus.CounterVec
	shipped     prometheus.Counter
	queueDepth  prometheus.Gauge
	stageTime   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a dedicated registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		trials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_trials_total",
				Help: "Total number of finished trial runs by outcome",
			},
			[]string{"outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_stage_transitions_total",
				Help: "Total number of stage enter, leave and reset transitions",
			},
			[]string{"stage", "event"},
		),
		escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stagehand_escalations_total",
				Help: "Total number of intercepted failures by tier and resulting outcome",
			},
			[]string{"tier", "outcome"},
		),
		shipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stagehand_results_shipped_total",
			Help: "Total number of trial results handed to the result sink",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stagehand_queue_depth",
			Help: "Number of pending argument sets",
		}),
		stageTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stagehand_stage_duration_seconds",
				Help:    "Wall time from stage enter to stage leave",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
	}
	m.Registry.MustRegister(m.trials, m.transitions, m.escalations, m.shipped, m.queueDepth, m.stageTime)
	return m
}

// SetQueueDepth records the pending queue length, e.g. before the experiment starts.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTrialFinish: func(_ context.Context, e *domain.TrialEvent) {
			m.trials.WithLabelValues(e.Outcome).Inc()
		},
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			m.transitions.WithLabelValues(e.Stage, string(domain.EventStageEnter)).Inc()
		},
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) {
			m.transitions.WithLabelValues(e.Stage, string(domain.EventStageLeave)).Inc()
			m.stageTime.WithLabelValues(e.Stage).Observe(e.Elapsed.Seconds())
		},
		OnStageReset: func(_ context.Context, e *domain.StageEvent) {
			m.transitions.WithLabelValues(e.Stage, string(domain.EventStageReset)).Inc()
		},
		OnEscalation: func(_ context.Context, e *domain.EscalationEvent) {
			outcome := "escalated"
			if e.Outcome != nil {
				outcome = e.Outcome.String()
			}
			m.escalations.WithLabelValues(string(e.Tier), outcome).Inc()
		},
		OnResultsShip: func(context.Context, *domain.TrialEvent) {
			m.shipped.Inc()
		},
		OnQueueAdvance: func(_ context.Context, e *domain.QueueEvent) {
			m.SetQueueDepth(e.Pending)
		},
	}
}
