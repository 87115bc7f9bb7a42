package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the publish and dispatch paths. A nil *Metrics is a
// valid no-op receiver so callers never need to branch.
type Metrics struct {
	publishAttempts *prometheus.CounterVec
	publishOutcomes *prometheus.CounterVec
	dispatched      *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
}

// NewMetrics registers the portabus collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		publishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portabus",
			Name:      "publish_attempts_total",
			Help:      "Publish attempts, including retries.",
		}, []string{"adapter", "topic"}),
		publishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portabus",
			Name:      "publish_outcomes_total",
			Help:      "Final publish outcomes.",
		}, []string{"adapter", "topic", "outcome"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portabus",
			Name:      "dispatched_total",
			Help:      "Envelopes handed to local handlers.",
		}, []string{"topic"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portabus",
			Name:      "handler_failures_total",
			Help:      "Handler invocations that returned an error or panicked.",
		}, []string{"topic"}),
	}

	reg.MustRegister(m.publishAttempts, m.publishOutcomes, m.dispatched, m.handlerFailures)
	return m
}

func (m *Metrics) PublishAttempt(adapter, topic string) {
	if m == nil {
		return
	}
	m.publishAttempts.WithLabelValues(adapter, topic).Inc()
}

func (m *Metrics) PublishOutcome(adapter, topic, outcome string) {
	if m == nil {
		return
	}
	m.publishOutcomes.WithLabelValues(adapter, topic, outcome).Inc()
}

func (m *Metrics) Dispatched(topic string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(topic).Inc()
}

func (m *Metrics) HandlerFailure(topic string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(topic).Inc()
}
