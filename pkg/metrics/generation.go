package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics records the outcome of generation pipelines and the
// credit movements they trigger. The kind label is "image" or "video".
type GenerationMetrics struct {
	duration       *prometheus.HistogramVec
	success        *prometheus.CounterVec
	failure        *prometheus.CounterVec
	creditsDebited *prometheus.CounterVec
	creditsGranted *prometheus.CounterVec
}

// NewGenerationMetrics registers the generation metrics on the provided registerer.
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "generation_duration_seconds",
		Help: "End-to-end duration of generation pipelines in seconds.",
		// Pipelines block on upstream synthesis, so buckets run well past DefBuckets.
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"kind"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_success",
		Help: "Generation pipelines that completed.",
	}, []string{"kind"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_failure",
		Help: "Generation pipelines that failed after the debit.",
	}, []string{"kind", "stage"})
	creditsDebited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credits_debited_total",
		Help: "Credits debited from user balances.",
	}, []string{"kind"})
	creditsGranted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "credits_granted_total",
		Help: "Credits granted to user balances.",
	}, []string{"reason"})
	reg.MustRegister(duration, success, failure, creditsDebited, creditsGranted)
	return &GenerationMetrics{
		duration:       duration,
		success:        success,
		failure:        failure,
		creditsDebited: creditsDebited,
		creditsGranted: creditsGranted,
	}
}

// ObserveDuration records the pipeline duration for the given kind.
func (g *GenerationMetrics) ObserveDuration(kind string, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}

// IncSuccess increments the completed pipeline counter.
func (g *GenerationMetrics) IncSuccess(kind string) {
	if g == nil || g.success == nil {
		return
	}
	g.success.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailure increments the failed pipeline counter for the stage that failed.
func (g *GenerationMetrics) IncFailure(kind, stage string) {
	if g == nil || g.failure == nil {
		return
	}
	g.failure.WithLabelValues(normalizeLabel(kind), normalizeLabel(stage)).Inc()
}

// AddCreditsDebited records credits removed from a balance.
func (g *GenerationMetrics) AddCreditsDebited(kind string, amount int) {
	if g == nil || g.creditsDebited == nil || amount <= 0 {
		return
	}
	g.creditsDebited.WithLabelValues(normalizeLabel(kind)).Add(float64(amount))
}

// AddCreditsGranted records credits added to a balance.
func (g *GenerationMetrics) AddCreditsGranted(reason string, amount int) {
	if g == nil || g.creditsGranted == nil || amount <= 0 {
		return
	}
	g.creditsGranted.WithLabelValues(normalizeLabel(reason)).Add(float64(amount))
}
