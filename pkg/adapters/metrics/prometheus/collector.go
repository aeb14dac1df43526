package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ogghst/puntini/internal/domain"
)

// Collector implements ports.MetricsCollector using Prometheus.
type Collector struct {
	goalsSubmitted   prometheus.Counter
	goalsFinished    *prometheus.CounterVec
	goalDuration     *prometheus.HistogramVec
	stageTransitions *prometheus.CounterVec
	toolExecutions   *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	plannerCalls     *prometheus.CounterVec
	plannerLatency   *prometheus.HistogramVec
	plannerTokens    *prometheus.CounterVec
	escalations      *prometheus.CounterVec
	activeExecutions prometheus.Gauge

	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

// NewCollector creates a Prometheus metrics collector. Metrics register on
// the default registry, so construct at most one per process.
func NewCollector() *Collector {
	return &Collector{
		goalsSubmitted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "puntini_goals_submitted_total",
				Help: "Total number of goals submitted",
			},
		),
		goalsFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puntini_goals_finished_total",
				Help: "Total number of goals reaching a terminal status",
			},
			[]string{"status"},
		),
		goalDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "puntini_goal_duration_seconds",
				Help:    "Goal execution duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		stageTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puntini_stage_transitions_total",
				Help: "Total number of stage machine transitions",
			},
			[]string{"from", "to"},
		),
		toolExecutions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puntini_tool_executions_total",
				Help: "Total number of graph tool executions",
			},
			[]string{"tool", "status"},
		),
		toolDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "puntini_tool_duration_seconds",
				Help:    "Tool execution duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"tool"},
		),
		plannerCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puntini_planner_calls_total",
				Help: "Total number of planner model calls",
			},
			[]string{"mode"},
		),
		plannerLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "puntini_planner_latency_seconds",
				Help:    "Planner model call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"mode"},
		),
		plannerTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puntini_planner_tokens_total",
				Help: "Total planner tokens consumed",
			},
			[]string{"mode", "type"},
		),
		escalations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "puntini_escalations_total",
				Help: "Total number of human escalations",
			},
			[]string{"reason"},
		),
		activeExecutions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "puntini_active_executions",
				Help: "Number of currently live executions",
			},
		),
		workerPoolIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "puntini_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "puntini_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "puntini_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
	}
}

// RecordGoalSubmitted counts one accepted goal.
func (c *Collector) RecordGoalSubmitted() {
	c.goalsSubmitted.Inc()
}

// RecordGoalFinished counts one terminal goal and observes its duration.
func (c *Collector) RecordGoalFinished(status string, duration time.Duration) {
	c.goalsFinished.WithLabelValues(status).Inc()
	c.goalDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordStageTransition counts one stage machine edge.
func (c *Collector) RecordStageTransition(from, to domain.Stage) {
	c.stageTransitions.WithLabelValues(string(from), string(to)).Inc()
}

// RecordToolExecution counts one tool call and observes its duration.
func (c *Collector) RecordToolExecution(tool domain.ToolName, status string, duration time.Duration) {
	c.toolExecutions.WithLabelValues(string(tool), status).Inc()
	c.toolDuration.WithLabelValues(string(tool)).Observe(duration.Seconds())
}

// RecordPlannerCall counts one model call with latency and token usage.
func (c *Collector) RecordPlannerCall(mode domain.PlannerMode, duration time.Duration, inputTokens, outputTokens int64) {
	c.plannerCalls.WithLabelValues(string(mode)).Inc()
	c.plannerLatency.WithLabelValues(string(mode)).Observe(duration.Seconds())
	c.plannerTokens.WithLabelValues(string(mode), "input").Add(float64(inputTokens))
	c.plannerTokens.WithLabelValues(string(mode), "output").Add(float64(outputTokens))
}

// RecordEscalation counts one human escalation.
func (c *Collector) RecordEscalation(reason string) {
	c.escalations.WithLabelValues(reason).Inc()
}

// SetActiveExecutions sets the live execution gauge.
func (c *Collector) SetActiveExecutions(n int) {
	c.activeExecutions.Set(float64(n))
}

// SetWorkerStatus sets the worker pool status gauges.
func (c *Collector) SetWorkerStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
