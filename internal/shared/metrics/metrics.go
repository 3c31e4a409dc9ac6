// Package metrics exposes lifecycle counters on a dedicated Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	events       *prometheus.CounterVec
	allocations  *prometheus.CounterVec
	allocatedKg  prometheus.Counter
	sideEffects  *prometheus.CounterVec
	idGeneration *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recytrack",
			Name:      "flow_events_total",
			Help:      "Material flow events recorded, by event type.",
		}, []string{"event_type"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recytrack",
			Name:      "allocations_total",
			Help:      "Batch allocation attempts, by outcome.",
		}, []string{"outcome"}),
		allocatedKg: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "recytrack",
			Name:      "allocated_kilograms_total",
			Help:      "Kilograms committed to orders.",
		}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recytrack",
			Name:      "side_effects_total",
			Help:      "Best-effort follow-up actions, by name and outcome.",
		}, []string{"name", "outcome"}),
		idGeneration: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recytrack",
			Name:      "id_generation_total",
			Help:      "Human-readable code requests, by prefix and outcome.",
		}, []string{"prefix", "outcome"}),
	}
	reg.MustRegister(
		m.events, m.allocations, m.allocatedKg, m.sideEffects, m.idGeneration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// All recorders are safe on a nil receiver so callers can run without metrics.

func (m *Metrics) FlowEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Allocation(outcome string, kg float64) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(outcome).Inc()
	if outcome == "ok" && kg > 0 {
		m.allocatedKg.Add(kg)
	}
}

func (m *Metrics) SideEffect(name string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.sideEffects.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) IDGeneration(prefix string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.idGeneration.WithLabelValues(prefix, outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
