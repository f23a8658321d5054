package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors of one aip process. All methods
// are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// Run and task metrics.
	RunsTotal   *prometheus.CounterVec
	TasksTotal  *prometheus.CounterVec
	ActiveTasks prometheus.Gauge

	// Stage metrics.
	StageDuration *prometheus.HistogramVec

	// Chat metrics.
	ChatRequestsTotal *prometheus.CounterVec
	ChatDuration      *prometheus.HistogramVec
	ChatTokensTotal   *prometheus.CounterVec
	ChatCostUSDTotal  *prometheus.CounterVec

	StartTime prometheus.Gauge
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_runs_total",
			Help: "Total number of agent runs by final status.",
		}, []string{"agent", "status"}),

		TasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_tasks_total",
			Help: "Total number of tasks by final status.",
		}, []string{"agent", "status"}),

		ActiveTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aip_active_tasks",
			Help: "Number of tasks currently running.",
		}),

		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aip_stage_duration_seconds",
			Help:    "Script stage duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),

		ChatRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_chat_requests_total",
			Help: "Total number of chat requests.",
		}, []string{"adapter", "model", "status"}),

		ChatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aip_chat_duration_seconds",
			Help:    "Chat request duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"adapter", "model"}),

		ChatTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_chat_tokens_total",
			Help: "Total number of tokens by kind.",
		}, []string{"adapter", "model", "kind"}),

		ChatCostUSDTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aip_chat_cost_usd_total",
			Help: "Total estimated chat cost in USD.",
		}, []string{"adapter", "model"}),

		StartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "aip_start_time_seconds",
			Help: "Unix timestamp when the process started.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.TasksTotal,
		m.ActiveTasks,
		m.StageDuration,
		m.ChatRequestsTotal,
		m.ChatDuration,
		m.ChatTokensTotal,
		m.ChatCostUSDTotal,
		m.StartTime,
	)

	m.StartTime.Set(float64(time.Now().Unix()))

	reg.MustRegister(collectors.NewGoCollector())

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteToFile writes all metrics in the text exposition format, for the node
// exporter textfile collector.
func (m *Metrics) WriteToFile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

func (m *Metrics) IncRun(agent, status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(agent, status).Inc()
}

func (m *Metrics) IncTask(agent, status string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(agent, status).Inc()
}

// TaskStarted increments the active tasks gauge and returns the matching
// decrement.
func (m *Metrics) TaskStarted() func() {
	if m == nil {
		return func() {}
	}
	m.ActiveTasks.Inc()
	return m.ActiveTasks.Dec
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveChat records one chat request. status is "ok" or "error".
func (m *Metrics) ObserveChat(adapter, model, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ChatRequestsTotal.WithLabelValues(adapter, model, status).Inc()
	if status == "ok" {
		m.ChatDuration.WithLabelValues(adapter, model).Observe(d.Seconds())
	}
}

// AddTokens adds n tokens of the given kind (prompt, cached, completion,
// reasoning).
func (m *Metrics) AddTokens(adapter, model, kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ChatTokensTotal.WithLabelValues(adapter, model, kind).Add(float64(n))
}

func (m *Metrics) AddCost(adapter, model string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.ChatCostUSDTotal.WithLabelValues(adapter, model).Add(usd)
}
