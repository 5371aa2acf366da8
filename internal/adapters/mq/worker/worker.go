// Package worker runs the scoring workers that drain the job queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/level114/warden/internal/adapters/mq/queue"
	"github.com/level114/warden/internal/domain/model"
	"github.com/level114/warden/internal/domain/scoring"
	"github.com/level114/warden/pkg/logger"
	"github.com/level114/warden/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Engine evaluates one server.
type Engine interface {
	Score(ctx context.Context, mc *scoring.MinerContext, previous *model.StoredScore) (*scoring.Evaluation, error)
}

// Registry reads and writes stored scores.
type Registry interface {
	Put(ctx context.Context, serverID string, score model.StoredScore) error
	Get(ctx context.Context, serverID string) (model.StoredScore, error)
}

// Publisher pushes the resulting weight to the ledger.
type Publisher interface {
	Publish(ctx context.Context, serverID string, weight float64) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker drains jobs and writes scoring results.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	engine    Engine
	registry  Registry
	publisher Publisher
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, engine Engine, registry Registry, pub Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		engine:    engine,
		registry:  registry,
		publisher: pub,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, job); err != nil {
				w.logger.Error(ctx, "job failed", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob scores one server and writes the result to the registry and
// the weight publisher.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var previous *model.StoredScore
	if stored, err := w.registry.Get(ctx, job.ServerID); err == nil {
		previous = &stored
	}

	ev, err := w.engine.Score(ctx, job.Miner, previous)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		return fmt.Errorf("score %s: %w", job.ServerID, err)
	}

	stored := model.StoredScore{
		Score:          ev.Score,
		Classification: ev.Classification,
		LastCounter:    lastCounter(job, previous),
		UpdatedAt:      time.Now(),
	}
	if err := w.registry.Put(ctx, job.ServerID, stored); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "registry_error")
		return fmt.Errorf("store %s: %w", job.ServerID, err)
	}

	weight := float64(ev.Score) / float64(model.MaxScore)
	if err := w.publisher.Publish(ctx, job.ServerID, weight); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "publish_error")
		return fmt.Errorf("publish %s: %w", job.ServerID, err)
	}
	return nil
}

// lastCounter carries the newest accepted counter forward with the score.
func lastCounter(job queue.Job, previous *model.StoredScore) int64 {
	if job.Miner != nil && job.Miner.Report != nil {
		return job.Miner.Report.Counter
	}
	if previous != nil {
		return previous.LastCounter
	}
	return -1
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool.
func NewPool(workerCount int, q Queue, engine Engine, registry Registry, pub Publisher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q, engine, registry, pub,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerActive(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals all workers and waits for them to finish.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
	metrics.UpdateWorkerActive(0)
}

// Shutdown closes the queue, then stops all workers, letting them drain
// what is already buffered.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActive(0)
	return nil
}
