package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Health errors returned by Pool.CheckHealth
var (
	ErrPoolNotRunning = errors.New("worker pool is not running")
	ErrWorkersStopped = errors.New("workers stopped")
	ErrQueueSaturated = errors.New("worker queue is saturated")
)

// Status is a point-in-time view of the pool
type Status struct {
	Workers  int
	Idle     int
	Busy     int
	Stopped  int
	Queued   int
	Capacity int
}

// Err returns why the pool cannot take more work, or nil.
// A pool is saturated once its queue is full: the next Submit would fail.
func (s Status) Err() error {
	switch {
	case s.Workers == 0:
		return ErrPoolNotRunning
	case s.Stopped > 0:
		return fmt.Errorf("%w: %d of %d", ErrWorkersStopped, s.Stopped, s.Workers)
	case s.Capacity > 0 && s.Queued >= s.Capacity:
		return fmt.Errorf("%w: %d jobs queued", ErrQueueSaturated, s.Queued)
	}
	return nil
}

// Status counts workers by state and reads the queue depth
func (p *Pool) Status() Status {
	status := Status{
		Queued:   len(p.queue),
		Capacity: cap(p.queue),
	}

	for _, s := range p.GetStatus() {
		status.Workers++
		switch s {
		case WorkerStatusIdle:
			status.Idle++
		case WorkerStatusBusy:
			status.Busy++
		case WorkerStatusStopped:
			status.Stopped++
		}
	}

	return status
}

// CheckHealth samples the pool, records the worker gauges and returns
// Status.Err. It implements ports.HealthChecker.
func (p *Pool) CheckHealth(_ context.Context) error {
	status := p.Status()
	p.metrics.RecordWorkerPoolStatus(status.Idle, status.Busy, status.Stopped)

	err := status.Err()
	if err != nil {
		p.logger.Warn("worker pool unhealthy",
			zap.Int("workers", status.Workers),
			zap.Int("busy", status.Busy),
			zap.Int("stopped", status.Stopped),
			zap.Int("queued", status.Queued),
			zap.Error(err))
	}
	return err
}

// monitor runs CheckHealth every interval until stop is closed
func (p *Pool) monitor(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = p.CheckHealth(p.ctx)
		}
	}
}
