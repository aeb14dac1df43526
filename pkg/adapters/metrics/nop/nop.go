package nop

import (
	"time"

	"github.com/ogghst/puntini/internal/domain"
)

// Collector is a MetricsCollector that records nothing. Used in tests and
// when metrics are disabled.
type Collector struct{}

// NewCollector creates a no-op metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (*Collector) RecordGoalSubmitted()                                    {}
func (*Collector) RecordGoalFinished(string, time.Duration)                {}
func (*Collector) RecordStageTransition(domain.Stage, domain.Stage)        {}
func (*Collector) RecordToolExecution(domain.ToolName, string, time.Duration) {}
func (*Collector) RecordPlannerCall(domain.PlannerMode, time.Duration, int64, int64) {
}
func (*Collector) RecordEscalation(string)        {}
func (*Collector) SetActiveExecutions(int)        {}
func (*Collector) SetWorkerStatus(int, int, int)  {}
