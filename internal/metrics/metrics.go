package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IntakeMetrics counts conversation progress and collaborator failures
type IntakeMetrics interface {
	IncStarted(flow string)
	IncCompleted(flow string)
	IncValidationFailed(flow, step string)
	IncExternalError(service string)
}

type intakeMetrics struct {
	started          *prometheus.CounterVec
	completed        *prometheus.CounterVec
	validationFailed *prometheus.CounterVec
	externalErrors   *prometheus.CounterVec
}

// NewIntakeMetrics registers the intake counters on registry
func NewIntakeMetrics(registry *prometheus.Registry) IntakeMetrics {
	started := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_started_total",
			Help: "The total number of started intake conversations",
		},
		[]string{"flow"},
	)

	completed := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_completed_total",
			Help: "The total number of intake conversations that reached the end",
		},
		[]string{"flow"},
	)

	validationFailed := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_failures_total",
			Help: "The total number of rejected answers",
		},
		[]string{"flow", "step"},
	)

	externalErrors := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_errors_total",
			Help: "The total number of failed calls to external services",
		},
		[]string{"service"},
	)

	return &intakeMetrics{
		started:          started,
		completed:        completed,
		validationFailed: validationFailed,
		externalErrors:   externalErrors,
	}
}

func (m *intakeMetrics) IncStarted(flow string) {
	m.started.WithLabelValues(flow).Inc()
}

func (m *intakeMetrics) IncCompleted(flow string) {
	m.completed.WithLabelValues(flow).Inc()
}

func (m *intakeMetrics) IncValidationFailed(flow, step string) {
	m.validationFailed.WithLabelValues(flow, step).Inc()
}

func (m *intakeMetrics) IncExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// Nop discards all observations
type Nop struct{}

func (Nop) IncStarted(string)                  {}
func (Nop) IncCompleted(string)                {}
func (Nop) IncValidationFailed(string, string) {}
func (Nop) IncExternalError(string)            {}
