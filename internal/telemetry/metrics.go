package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quiz_sessions_active",
		Help: "Number of sessions currently registered.",
	})

	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_created_total",
		Help: "Sessions created since process start.",
	})

	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_sessions_evicted_total",
		Help: "Sessions removed by the idle reaper.",
	})

	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_events_total",
		Help: "Inbound events by type and outcome.",
	}, []string{"type", "outcome"})

	AnswersScored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_answers_scored_total",
		Help: "Answers scored by score mode.",
	}, []string{"mode"})
)

// Event outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeUnknown  = "unknown"
)
