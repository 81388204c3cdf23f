package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kapu/cashier-dialog-gen/internal/domain"
)

const namespace = "dialoggen"

// Metrics is the run's collector set, registered on a private registry so
// that several runs (and tests) never share state.
type Metrics struct {
	registry *prometheus.Registry

	completions       *prometheus.CounterVec
	completionSeconds *prometheus.HistogramVec
	rateLimitWaits    *prometheus.CounterVec
	rateLimitSeconds  *prometheus.CounterVec
	dialogues         *prometheus.CounterVec
	flags             *prometheus.CounterVec
	turns             prometheus.Histogram
	orderEnergy       prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "completions_total",
				Help:      "Completion calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		completionSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "completion_duration_seconds",
				Help:      "Latency of single completion calls",
				Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
			},
			[]string{"provider"},
		),
		rateLimitWaits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_waits_total",
				Help:      "429 responses by quota kind",
			},
			[]string{"provider", "kind"},
		),
		rateLimitSeconds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_wait_seconds_total",
				Help:      "Time spent waiting on rate limits",
			},
			[]string{"provider"},
		),
		dialogues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dialogues_total",
				Help:      "Dialogues by generation mode and result",
			},
			[]string{"mode", "status"},
		),
		flags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_flags_total",
				Help:      "Raised validation flags",
			},
			[]string{"flag"},
		),
		turns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dialogue_turns",
			Help:      "Turns per persisted dialogue",
			Buckets:   prometheus.LinearBuckets(2, 4, 11),
		}),
		orderEnergy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_energy_kcal",
			Help:      "Total energy of extracted orders",
			Buckets:   prometheus.LinearBuckets(0, 500, 10),
		}),
	}

	m.registry.MustRegister(
		m.completions,
		m.completionSeconds,
		m.rateLimitWaits,
		m.rateLimitSeconds,
		m.dialogues,
		m.flags,
		m.turns,
		m.orderEnergy,
	)
	return m
}

// Registry exposes the collectors, e.g. for testutil or an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveCompletion(provider, outcome string, elapsed time.Duration) {
	m.completions.WithLabelValues(provider, outcome).Inc()
	m.completionSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRateLimit(provider string, daily bool, wait time.Duration) {
	kind := "minute"
	if daily {
		kind = "daily"
	}
	m.rateLimitWaits.WithLabelValues(provider, kind).Inc()
	m.rateLimitSeconds.WithLabelValues(provider).Add(wait.Seconds())
}

// ObserveDialogue records a persisted dialogue.
func (m *Metrics) ObserveDialogue(rec *domain.DialogueRecord) {
	m.dialogues.WithLabelValues(rec.Mode, "ok").Inc()
	m.turns.Observe(float64(len(rec.Turns)))
	m.orderEnergy.Observe(rec.TotalEnergy)
	for name, raised := range rec.ValidationFlags.Named() {
		if raised {
			m.flags.WithLabelValues(name).Inc()
		}
	}
}

// ObserveFailure records a dialogue that could not be produced or stored.
func (m *Metrics) ObserveFailure(mode string) {
	m.dialogues.WithLabelValues(mode, "error").Inc()
}

// WriteToTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
