package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor periodically samples worker status and reports it.
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewHealthMonitor creates a health monitor for the given pool.
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic health check.
func (h *HealthMonitor) Start() {
	h.wg.Add(1)
	go h.loop()
}

// Stop stops the health monitor.
func (h *HealthMonitor) Stop() {
	close(h.stopCh)
	h.wg.Wait()
}

func (h *HealthMonitor) loop() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.check()
		}
	}
}

// check samples worker status and pushes the counts to metrics.
func (h *HealthMonitor) check() {
	status := h.pool.GetStatus()

	var idle, busy, stopped int
	for _, s := range status {
		switch s {
		case WorkerStatusIdle:
			idle++
		case WorkerStatusBusy:
			busy++
		case WorkerStatusStopped:
			stopped++
		}
	}

	if h.pool.metrics != nil {
		h.pool.metrics.SetWorkerStatus(idle, busy, stopped)
	}

	h.logger.Debug("worker pool health",
		zap.Int("idle", idle),
		zap.Int("busy", busy),
		zap.Int("stopped", stopped),
	)

	if stopped > 0 && busy == 0 && idle == 0 {
		h.logger.Warn("all workers stopped", zap.Int("stopped", stopped))
	}
}

// IsHealthy reports whether at least one worker can take jobs.
func (h *HealthMonitor) IsHealthy() bool {
	for _, s := range h.pool.GetStatus() {
		if s == WorkerStatusIdle || s == WorkerStatusBusy {
			return true
		}
	}
	return false
}
