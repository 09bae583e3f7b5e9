package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollMetrics records metadata for the product and order polling loops.
type PollMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	emitted  *prometheus.CounterVec
}

// NewPollMetrics registers the polling metrics on the provided registerer.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	if reg == nil {
		return &PollMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_duration_seconds",
		Help:    "Duration of polling runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"poll"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_success",
		Help: "Polling runs that completed without error.",
	}, []string{"poll"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_failure",
		Help: "Polling runs that ended in a classified error.",
	}, []string{"poll"})
	emitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_emitted",
		Help: "Notification records created by the dedup engine.",
	}, []string{"poll"})
	reg.MustRegister(duration, success, failure, emitted)
	return &PollMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		emitted:  emitted,
	}
}

// ObserveDuration records the duration for the named poll.
func (p *PollMetrics) ObserveDuration(poll string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(poll)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named poll.
func (p *PollMetrics) IncSuccess(poll string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(poll)).Inc()
}

// IncFailure increments the failure counter for the named poll.
func (p *PollMetrics) IncFailure(poll string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(poll)).Inc()
}

// AddEmitted counts notification records produced by the named poll.
func (p *PollMetrics) AddEmitted(poll string, count int) {
	if p == nil || p.emitted == nil || count <= 0 {
		return
	}
	p.emitted.WithLabelValues(normalizeLabel(poll)).Add(float64(count))
}

func normalizeLabel(poll string) string {
	if poll == "" {
		return "unknown"
	}
	return poll
}
