package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/eventjob"
	"github.com/hybridmem/memstore/pkg/config"
)

// WorkerPool manages a pool of queue workers plus the background reaper
// that requeues jobs orphaned by a crashed worker.
type WorkerPool struct {
	client       *ent.Client
	cfg          *config.QueueConfig
	extractor    Extractor
	materializer Materializer
	workers      []*Worker
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	started      bool

	reap reapState
}

// NewWorkerPool constructs a WorkerPool.
func NewWorkerPool(client *ent.Client, cfg *config.QueueConfig, extractor Extractor, materializer Materializer) *WorkerPool {
	return &WorkerPool{
		client:       client,
		cfg:          cfg,
		extractor:    extractor,
		materializer: materializer,
		workers:      make([]*Worker, 0, cfg.WorkerCount),
		stopCh:       make(chan struct{}),
	}
}

// Start spawns the configured number of workers and the reaper loop. Safe
// to call once; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("queue: worker pool already started, ignoring duplicate Start call")
		return nil
	}
	p.started = true

	slog.Info("queue: starting worker pool", "worker_count", p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		worker := NewWorker(fmt.Sprintf("worker-%d", i), p.client, p.cfg, p.extractor, p.materializer)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runReaper(ctx)
	}()

	return nil
}

// Stop signals all workers and the reaper to stop, and waits for the
// current in-flight job (if any) on each worker to finish.
func (p *WorkerPool) Stop() {
	slog.Info("queue: stopping worker pool")
	for _, worker := range p.workers {
		worker.Stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
	slog.Info("queue: worker pool stopped")
}

// Health reports pool-wide health, including pending job depth.
func (p *WorkerPool) Health() *PoolHealth {
	ctx := context.Background()

	pending, err := p.client.EventJob.Query().Where(eventjob.StatusEQ(eventjob.StatusPENDING)).Count(ctx)
	dbHealthy := err == nil
	var dbError string
	if err != nil {
		dbError = fmt.Sprintf("pending job count query failed: %v", err)
	}

	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		h := w.Health()
		stats[i] = h
		if h.Status == string(WorkerStatusWorking) {
			active++
		}
	}

	p.reap.mu.Lock()
	lastScan := p.reap.lastScan
	reaped := p.reap.jobsReaped
	p.reap.mu.Unlock()

	return &PoolHealth{
		IsHealthy:     len(p.workers) > 0 && dbHealthy,
		DBReachable:   dbHealthy,
		DBError:       dbError,
		TotalWorkers:  len(p.workers),
		ActiveWorkers: active,
		PendingJobs:   pending,
		WorkerStats:   stats,
		LastReapScan:  lastScan,
		JobsReaped:    reaped,
	}
}
