// Package app wires the scoring pipeline: collector client, replay ledger,
// integrity verifier, scoring engine, job queue, worker pool, score registry
// and weight publisher.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/level114/warden/internal/adapters/collector"
	"github.com/level114/warden/internal/adapters/mq/queue"
	"github.com/level114/warden/internal/adapters/mq/worker"
	"github.com/level114/warden/internal/adapters/publisher"
	"github.com/level114/warden/internal/adapters/repository"
	"github.com/level114/warden/internal/config"
	"github.com/level114/warden/internal/domain/history"
	"github.com/level114/warden/internal/domain/integrity"
	"github.com/level114/warden/internal/domain/replay"
	"github.com/level114/warden/internal/domain/scoring"
	"github.com/level114/warden/pkg/logger"
	"github.com/level114/warden/pkg/metrics"
)

// Service drives the scoring cycles and owns every pipeline component.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	collector collector.Client
	ledger    replay.Ledger
	verifier  *integrity.Verifier
	engine    *scoring.Engine
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	registry  *repository.TreapStore
	publisher publisher.Publisher

	started bool
	stopCh  chan struct{}
	loopWG  sync.WaitGroup

	cycles        atomic.Int64
	lastCycleUnix atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCollector replaces the default HTTP collector client.
func WithCollector(c collector.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.collector = c
		}
	}
}

// WithPublisher replaces the default logging weight publisher.
func WithPublisher(p publisher.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithVerifier replaces the default integrity verifier.
func WithVerifier(v *integrity.Verifier) Option {
	return func(s *Service) {
		if v != nil {
			s.verifier = v
		}
	}
}

// New constructs a Service around a validated Config.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the pipeline components, starts the worker pool and the
// cycle scheduler. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger = logger.Named("service")
	s.logger.Info(ctx, "starting scoring service")

	if s.collector == nil {
		s.collector = collector.NewHTTPClient(
			s.cfg.CollectorURL,
			collector.WithTimeout(time.Duration(s.cfg.CollectorTimeoutMS)*time.Millisecond),
		)
	}
	if s.publisher == nil {
		s.publisher = publisher.NewLogPublisher()
	}
	if s.verifier == nil {
		s.verifier = integrity.NewVerifier()
	}

	s.ledger = replay.NewInMemoryLedger(replay.WithMaxSize(s.cfg.NonceLedgerSize))
	s.engine = scoring.NewEngine(scoring.FromConfig(s.cfg))
	s.registry = repository.NewTreapStore(ctx)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.cfg.QueueSize))
	s.pool = worker.NewPool(s.cfg.WorkerCount, s.queue, s.engine, s.registry, s.publisher)
	s.pool.Start(ctx)

	s.loopWG.Add(1)
	go s.cycleLoop(ctx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queue_capacity", s.cfg.QueueSize),
		logger.Int("cycle_interval_s", s.cfg.CycleIntervalS),
	)
	return nil
}

// Stop shuts the scheduler down, drains the queue through the worker pool
// and closes the registry. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.loopWG.Wait()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if err := s.registry.Close(); err != nil {
		s.logger.Warn(ctx, "registry close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

// cycleLoop runs one cycle immediately, then one per interval until Stop or
// context cancellation.
func (s *Service) cycleLoop(ctx context.Context) {
	defer s.loopWG.Done()

	if err := s.RunCycle(ctx); err != nil {
		s.logger.Error(ctx, "cycle failed", logger.Error(err))
	}

	ticker := time.NewTicker(time.Duration(s.cfg.CycleIntervalS) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				s.logger.Error(ctx, "cycle failed", logger.Error(err))
			}
		}
	}
}

// RunCycle lists the registered servers and fans one scoring job per server
// out to the worker pool. Evaluation time is pinned once so every server in
// the cycle is judged against the same clock.
func (s *Service) RunCycle(ctx context.Context) error {
	start := time.Now()

	servers, err := s.collector.Servers(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", "listing_error")
		return fmt.Errorf("list servers: %w", err)
	}

	enqueued := 0
	for _, srv := range servers {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.evaluate(ctx, srv, start) {
			enqueued++
		}
	}

	s.cycles.Add(1)
	s.lastCycleUnix.Store(time.Now().Unix())
	metrics.RecordCycleDuration(time.Since(start).Seconds())
	metrics.UpdateServersScored(enqueued)

	s.logger.Info(ctx, "cycle complete",
		logger.Int("servers", len(servers)),
		logger.Int("enqueued", enqueued),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// evaluate fetches, verifies and enqueues one server's evaluation. Returns
// true when a job reached the queue. Collector failures skip the server and
// leave its stored score untouched.
func (s *Service) evaluate(ctx context.Context, srv collector.ServerInfo, now time.Time) bool {
	reports, err := s.collector.Reports(ctx, srv.ID, s.cfg.MaxHistory)
	if err != nil && !errors.Is(err, collector.ErrNotFound) {
		s.logger.Warn(ctx, "history fetch failed",
			logger.String("server_id", srv.ID), logger.Error(err))
		metrics.RecordErrorByComponent("service", "history_error")
		return false
	}

	latest, latency, err := s.collector.LatestReport(ctx, srv.ID)
	if err != nil {
		if errors.Is(err, collector.ErrNotFound) {
			// No telemetry yet; score the empty history so the server
			// still appears in the registry, at zero.
			mc := &scoring.MinerContext{
				ServerID:   srv.ID,
				Registered: srv.Registered,
				History:    history.New(s.cfg.MaxHistory),
				Now:        now,
			}
			return s.submit(ctx, mc, "")
		}
		s.logger.Warn(ctx, "latest report fetch failed",
			logger.String("server_id", srv.ID), logger.Error(err))
		metrics.RecordErrorByComponent("service", "report_error")
		return false
	}

	lastCounter := s.ledger.LastCounter(ctx, srv.ID)
	if lastCounter < 0 {
		// The ledger is empty after a restart; the registry remembers the
		// newest accepted counter alongside the score.
		if stored, err := s.registry.Get(ctx, srv.ID); err == nil {
			lastCounter = stored.LastCounter
		}
	}

	key, err := s.collector.ServerKey(ctx, srv.ID)
	if err != nil {
		// A missing key is not fatal; the verifier flags the signature.
		key = nil
	}

	res := s.verifier.Verify(latest, key, lastCounter, now)
	if !res.Accepted {
		metrics.RecordVerificationFailure(string(res.Kind))
		if res.Kind == integrity.KindReplay {
			metrics.RecordReplayRejected()
		}
		s.logger.Warn(ctx, "report rejected",
			logger.String("server_id", srv.ID),
			logger.String("kind", string(res.Kind)),
			logger.String("detail", res.Detail),
		)
		return false
	}
	if latest.Nonce != "" && s.ledger.SeenAndRecord(ctx, srv.ID, latest.Nonce) {
		metrics.RecordVerificationFailure(string(integrity.KindReplay))
		metrics.RecordReplayRejected()
		s.logger.Warn(ctx, "nonce replayed", logger.String("server_id", srv.ID))
		return false
	}

	if res.OK {
		metrics.RecordReportVerified()
	} else {
		metrics.RecordVerificationFailure(string(res.Kind))
	}
	s.ledger.Advance(ctx, srv.ID, latest.Counter)

	clamped := s.verifier.Clamp(latest)
	window := history.FromRecentFirst(reports, s.cfg.MaxHistory)
	if newest := window.Latest(); newest == nil || newest.Counter < clamped.Counter {
		window.Push(clamped)
	}

	mc := &scoring.MinerContext{
		ServerID:     srv.ID,
		Report:       clamped,
		HTTPLatencyS: latency.Seconds(),
		Registered:   srv.Registered,
		History:      window,
		Now:          now,
	}
	if !res.OK {
		mc.Verification = res.Kind
	}
	return s.submit(ctx, mc, latest.Nonce)
}

// submit enqueues one scoring job. A drop releases the nonce so the same
// report can be retried next cycle.
func (s *Service) submit(ctx context.Context, mc *scoring.MinerContext, nonce string) bool {
	job := queue.Job{ServerID: mc.ServerID, Miner: mc, EnqueuedAt: time.Now()}
	if !s.queue.Enqueue(ctx, job) {
		if nonce != "" {
			s.ledger.Unrecord(ctx, mc.ServerID, nonce)
		}
		s.logger.Warn(ctx, "job dropped", logger.String("server_id", mc.ServerID))
		return false
	}
	return true
}

// Registry exposes the ranked score store for the HTTP API.
func (s *Service) Registry() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

// Stats returns cycle counters for the operator API.
func (s *Service) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"worker_count":     s.cfg.WorkerCount,
		"queue_capacity":   s.cfg.QueueSize,
		"cycle_interval_s": s.cfg.CycleIntervalS,
		"cycles":           s.cycles.Load(),
	}
	if s.started {
		ctx := context.Background()
		stats["queue_length"] = s.queue.Len(ctx)
		stats["servers_tracked"] = s.registry.Count(ctx)
		stats["nonce_ledger_size"] = s.ledger.Size()
		if ts := s.lastCycleUnix.Load(); ts > 0 {
			stats["last_cycle_at"] = time.Unix(ts, 0).UTC().Format(time.RFC3339)
		}
	}
	return stats
}
