// Package metrics exports the watchdog's progress as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/amartya2002/connectivity-watchdog/watchdog"
)

const namespace = "connectivity_watchdog"

var kinds = []watchdog.StateKind{
	watchdog.KindNeverConnected,
	watchdog.KindOnceConnected,
	watchdog.KindDisconnected,
	watchdog.KindSettingChangeDelay,
}

// Metrics implements watchdog.Recorder.
type Metrics struct {
	probeRounds   *prometheus.CounterVec
	probeDuration prometheus.Histogram
	transitions   *prometheus.CounterVec
	state         *prometheus.GaugeVec
	recoveries    *prometheus.CounterVec
	changeEvents  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		probeRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_rounds_total",
			Help:      "Probe rounds by result.",
		}, []string{"result"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_round_duration_seconds",
			Help:      "Time spent in one probe round.",
			Buckets:   prometheus.DefBuckets,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "State machine transitions.",
		}, []string{"from", "to"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the current state, 0 otherwise.",
		}, []string{"state"}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recoveries_total",
			Help:      "Recovery actions by result.",
		}, []string{"result"}),
		changeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Network property changes by property and whether they were ignored.",
		}, []string{"property", "ignored"}),
	}
	reg.MustRegister(m.probeRounds, m.probeDuration, m.transitions, m.state, m.recoveries, m.changeEvents)
	m.setState(watchdog.KindNeverConnected)
	return m
}

func (m *Metrics) ProbeRound(err error, took time.Duration) {
	m.probeRounds.WithLabelValues(result(err)).Inc()
	m.probeDuration.Observe(took.Seconds())
}

func (m *Metrics) Transition(from, to watchdog.StateKind) {
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
	m.setState(to)
}

func (m *Metrics) Recovery(err error) {
	m.recoveries.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ChangeEvent(property string, ignored bool) {
	label := "false"
	if ignored {
		label = "true"
	}
	m.changeEvents.WithLabelValues(property, label).Inc()
}

func (m *Metrics) setState(current watchdog.StateKind) {
	for _, k := range kinds {
		v := 0.0
		if k == current {
			v = 1
		}
		m.state.WithLabelValues(string(k)).Set(v)
	}
}

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
