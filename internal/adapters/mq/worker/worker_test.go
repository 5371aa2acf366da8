package worker_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/level114/warden/internal/adapters/mq/queue"
	"github.com/level114/warden/internal/adapters/mq/worker"
	"github.com/level114/warden/internal/domain/history"
	"github.com/level114/warden/internal/domain/model"
	"github.com/level114/warden/internal/domain/scoring"
	"github.com/level114/warden/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeRegistry is an in-memory Registry recording puts.
type fakeRegistry struct {
	mu     sync.Mutex
	scores map[string]model.StoredScore
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{scores: make(map[string]model.StoredScore)}
}

func (f *fakeRegistry) Put(ctx context.Context, serverID string, score model.StoredScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[serverID] = score
	return nil
}

func (f *fakeRegistry) Get(ctx context.Context, serverID string) (model.StoredScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.scores[serverID]; ok {
		return s, nil
	}
	return model.StoredScore{}, errors.New("not found")
}

// fakePublisher records published weights.
type fakePublisher struct {
	mu      sync.Mutex
	weights map[string]float64
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{weights: make(map[string]float64)}
}

func (f *fakePublisher) Publish(ctx context.Context, serverID string, weight float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weights[serverID] = weight
	return nil
}

func (f *fakePublisher) weight(serverID string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.weights[serverID]
	return w, ok
}

func activePlayers(n int) []model.ActivePlayer {
	out := make([]model.ActivePlayer, n)
	for i := range out {
		out[i] = model.ActivePlayer{Name: fmt.Sprintf("p%d", i), UUID: fmt.Sprintf("u-%d", i)}
	}
	return out
}

func minerContext(serverID string, now time.Time) *scoring.MinerContext {
	w := history.New(60)
	for i := 0; i < 20; i++ {
		ts := now.Add(-time.Duration(19-i) * time.Minute)
		uptime := 72*time.Hour + time.Duration(i)*time.Minute
		w.Push(&model.Report{
			ServerID:          serverID,
			Counter:           int64(i),
			ClientTimestampMS: ts.UnixMilli(),
			Payload: model.Payload{
				ActivePlayers: activePlayers(100),
				MaxPlayers:    150,
				Memory:        model.MemoryInfo{FreeBytes: 3 << 30, UsedBytes: 1 << 30, TotalBytes: 4 << 30},
				Plugins:       []string{"Level114"},
				TPSMillis:     50,
				UptimeMS:      uptime.Milliseconds(),
			},
		})
	}
	return &scoring.MinerContext{
		ServerID:   serverID,
		Report:     w.Latest(),
		Registered: true,
		History:    w,
		Now:        now,
	}
}

func TestWorkerProcessing(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	Convey("Given a worker pool over a job queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		registry := newFakeRegistry()
		pub := newFakePublisher()
		engine := scoring.NewEngine(scoring.NewConfig())
		pool := worker.NewPool(2, q, engine, registry, pub)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		pool.Start(runCtx)

		Convey("When jobs are enqueued", func() {
			So(q.Enqueue(ctx, queue.Job{ServerID: "srv-1", Miner: minerContext("srv-1", now)}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{ServerID: "srv-2", Miner: minerContext("srv-2", now)}), ShouldBeTrue)

			So(q.Close(), ShouldBeNil)
			So(pool.Shutdown(ctx), ShouldBeNil)

			Convey("Then scores should land in the registry", func() {
				s1, err := registry.Get(ctx, "srv-1")
				So(err, ShouldBeNil)
				So(s1.Score, ShouldBeGreaterThan, 0)
				So(s1.Classification, ShouldNotBeEmpty)
				So(s1.LastCounter, ShouldEqual, 19)

				_, err = registry.Get(ctx, "srv-2")
				So(err, ShouldBeNil)
			})

			Convey("And weights should be published on the [0,1] scale", func() {
				w1, ok := pub.weight("srv-1")
				So(ok, ShouldBeTrue)
				So(w1, ShouldBeGreaterThan, 0.0)
				So(w1, ShouldBeLessThanOrEqualTo, 1.0)
			})
		})
	})
}

func TestWorkerUsesPreviousScore(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	Convey("Given a registry with an existing score", t, func() {
		q := queue.NewInMemoryQueue()
		registry := newFakeRegistry()
		pub := newFakePublisher()
		So(registry.Put(ctx, "srv-1", model.StoredScore{Score: 500, LastCounter: 3}), ShouldBeNil)

		engine := scoring.NewEngine(scoring.NewConfig())
		pool := worker.NewPool(1, q, engine, registry, pub)

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		pool.Start(runCtx)

		So(q.Enqueue(ctx, queue.Job{ServerID: "srv-1", Miner: minerContext("srv-1", now)}), ShouldBeTrue)
		So(q.Close(), ShouldBeNil)
		So(pool.Shutdown(ctx), ShouldBeNil)

		Convey("Then the new score should be smoothed from the previous one", func() {
			s, err := registry.Get(ctx, "srv-1")
			So(err, ShouldBeNil)
			// Raw 881 smoothed against 500.
			So(s.Score, ShouldEqual, 576)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	ctx := context.Background()

	Convey("Given an idle worker", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, scoring.NewEngine(scoring.NewConfig()), newFakeRegistry(), newFakePublisher())

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go w.Run(runCtx)

		Convey("Then shutdown should complete promptly", func() {
			shutdownCtx, stop := context.WithTimeout(ctx, 2*time.Second)
			defer stop()
			So(w.Shutdown(shutdownCtx), ShouldBeNil)
		})
	})
}
