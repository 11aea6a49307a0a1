// Package metrics exposes Prometheus counters for task activity.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters services report to. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	completions   *prometheus.CounterVec
	spawns        *prometheus.CounterVec
	spawnFailures *prometheus.CounterVec
	reloads       *prometheus.CounterVec
	reminders     *prometheus.CounterVec
	requests      *prometheus.CounterVec
}

// New registers the counters on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familytasks_task_toggles_total",
				Help: "Completion toggles by resulting state",
			},
			[]string{"state"},
		),
		spawns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familytasks_instances_spawned_total",
				Help: "Task instances created from recurring templates",
			},
			[]string{"trigger"},
		),
		spawnFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familytasks_instance_spawn_failures_total",
				Help: "Failed inserts of template instances",
			},
			[]string{"trigger"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familytasks_state_reloads_total",
				Help: "Full state reloads after a failed write",
			},
			[]string{"reason"},
		),
		reminders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familytasks_reminders_sent_total",
				Help: "Telegram reminders by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "familytasks_http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
	}
	m.registry.MustRegister(m.completions, m.spawns, m.spawnFailures, m.reloads, m.reminders, m.requests)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Toggled(completed bool) {
	if m == nil {
		return
	}
	state := "pending"
	if completed {
		state = "completed"
	}
	m.completions.WithLabelValues(state).Inc()
}

// Spawned counts a created instance. trigger is "completion" or "template".
func (m *Metrics) Spawned(trigger string) {
	if m == nil {
		return
	}
	m.spawns.WithLabelValues(trigger).Inc()
}

func (m *Metrics) SpawnFailed(trigger string) {
	if m == nil {
		return
	}
	m.spawnFailures.WithLabelValues(trigger).Inc()
}

func (m *Metrics) Reloaded(reason string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(reason).Inc()
}

func (m *Metrics) ReminderSent(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.reminders.WithLabelValues(kind, outcome).Inc()
}

// Request counts one HTTP request. route is the registered path pattern, not
// the raw URL.
func (m *Metrics) Request(method, route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
