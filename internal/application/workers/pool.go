package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/kvarea/pkg/ports"
	"go.uber.org/zap"
)

// Job is a unit of background work
type Job = func(ctx context.Context) error

// Submit errors
var (
	ErrQueueFull  = errors.New("worker queue is full")
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Pool manages a pool of worker goroutines
type Pool struct {
	size    int
	queue   chan Job
	metrics ports.MetricsCollector
	logger  *zap.Logger

	// healthInterval <= 0 disables the periodic health check
	healthInterval time.Duration
	stopMonitor    chan struct{}

	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	mu      sync.RWMutex
	started bool
	closed  bool
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool with size workers and room for
// queueSize pending jobs
func NewPool(
	size int,
	queueSize int,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:    size,
		queue:   make(chan Job, queueSize),
		metrics: metrics,
		logger:  logger,
		workers: make([]*worker, size),
		ctx:     ctx,
		cancel:  cancel,

		healthInterval: healthCheckInterval,
		stopMonitor:    make(chan struct{}),
	}

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	p.started = true

	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	// Create and start workers
	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	if p.healthInterval > 0 {
		go p.monitor(p.healthInterval, p.stopMonitor)
	}

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Submit enqueues job without blocking. It fails when the queue is full or
// the pool is shutting down.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs, lets workers drain the queue and waits for
// them. When ctx expires first, running jobs are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	close(p.stopMonitor)

	// Wait for all workers to finish with timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		p.cancel()
		return fmt.Errorf("shutdown timeout")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	p.mu.RLock()
	workers := p.workers
	p.mu.RUnlock()

	status := make(map[string]WorkerStatus)
	for _, w := range workers {
		if w == nil {
			continue
		}
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// run is the main worker loop. It exits once the queue is closed and drained.
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for job := range w.pool.queue {
		w.handle(ctx, job)
	}

	w.setStatus(WorkerStatusStopped)
	w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
}

// handle runs a single job
func (w *worker) handle(ctx context.Context, job Job) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer w.setStatus(WorkerStatusIdle)

	start := time.Now()
	if err := job(ctx); err != nil {
		w.pool.logger.Error("job failed",
			zap.String("worker_id", w.id),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
}

func (w *worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}
