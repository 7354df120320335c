package tasks

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the store's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	commands      *prometheus.CounterVec
	rollovers     prometheus.Counter
	persistErrors prometheus.Counter
	corruptLoads  prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daily_tasks_commands_total",
				Help: "Store commands by name and outcome",
			},
			[]string{"command", "outcome"},
		),
		rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daily_tasks_rollovers_total",
			Help: "Number of calendar day rollovers observed",
		}),
		persistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daily_tasks_persist_errors_total",
			Help: "Failed writes of a day record to storage",
		}),
		corruptLoads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "daily_tasks_corrupt_loads_total",
			Help: "Day records that could not be read and were treated as empty",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.commands, m.rollovers, m.persistErrors, m.corruptLoads)
	}
	return m
}

func (m *Metrics) command(name, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) rollover() {
	if m == nil {
		return
	}
	m.rollovers.Inc()
}

func (m *Metrics) persistError() {
	if m == nil {
		return
	}
	m.persistErrors.Inc()
}

func (m *Metrics) corruptLoad() {
	if m == nil {
		return
	}
	m.corruptLoads.Inc()
}
