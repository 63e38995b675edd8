package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/pkg/config"
)

const (
	jobTypeExtractEvents = "extract_events"
	jobTypeGraphUpsert   = "graph_upsert"
)

// Worker polls for both job types and dispatches each to its handler.
// Each claim is scoped to exactly one job_type, per spec.md §4.4's
// claim-by-type contract.
type Worker struct {
	id           string
	client       *ent.Client
	cfg          *config.QueueConfig
	extractor    Extractor
	materializer Materializer
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// NewWorker constructs a Worker.
func NewWorker(id string, client *ent.Client, cfg *config.QueueConfig, extractor Extractor, materializer Materializer) *Worker {
	return &Worker{
		id:           id,
		client:       client,
		cfg:          cfg,
		extractor:    extractor,
		materializer: materializer,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for its current job to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health snapshot.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id)
	log.Info("queue worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("queue worker shutting down")
			return
		case <-ctx.Done():
			log.Info("queue worker context cancelled")
			return
		default:
			processed, err := w.pollAndProcess(ctx)
			if err != nil {
				log.Error("queue worker poll error", "error", err)
				w.sleep(time.Second)
				continue
			}
			if !processed {
				w.sleep(w.pollInterval())
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess tries extract_events first, then graph_upsert, claiming
// and fully processing at most one job. It reports whether a job was
// found so the caller can skip the idle poll-interval sleep.
func (w *Worker) pollAndProcess(ctx context.Context) (bool, error) {
	for _, jobType := range [...]string{jobTypeExtractEvents, jobTypeGraphUpsert} {
		job, err := claimJobByType(ctx, w.client, w.id, jobType)
		if err != nil {
			if errors.Is(err, ErrNoJobsAvailable) {
				continue
			}
			return false, err
		}
		w.process(ctx, job)
		return true, nil
	}
	return false, nil
}

func (w *Worker) process(ctx context.Context, job *claimedJob) {
	log := slog.With("worker_id", w.id, "job_id", job.ID, "job_type", job.JobType)
	log.Info("job claimed")

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
	defer cancel()

	var runErr error
	var maxAttempts int
	switch job.JobType {
	case jobTypeExtractEvents:
		maxAttempts = w.cfg.EventMaxAttempts
		runErr = w.extractor.Run(jobCtx, job.ID, job.ArtifactUID, job.RevisionID, w.cfg.GraphMaxAttempts)
	case jobTypeGraphUpsert:
		maxAttempts = w.cfg.GraphMaxAttempts
		runErr = w.materializer.Upsert(jobCtx, job.ArtifactUID, job.RevisionID)
	default:
		runErr = fmt.Errorf("queue: unknown job_type %q", job.JobType)
		maxAttempts = job.Attempts
	}

	doneCtx := context.Background()
	if runErr != nil {
		log.Error("job failed", "error", runErr, "attempts", job.Attempts)
		bc := backoffConfig{Base: w.cfg.BackoffBase, Max: w.cfg.BackoffMax}
		if err := markFailed(doneCtx, w.client, bc, job.ID, job.Attempts, maxAttempts, true, "processing_error", runErr.Error()); err != nil {
			log.Error("failed to mark job failed", "error", err)
		}
	} else {
		if err := markDone(doneCtx, w.client, job.ID); err != nil {
			log.Error("failed to mark job done", "error", err)
		}
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	log.Info("job processing complete", "error", runErr)
}

func (w *Worker) pollInterval() time.Duration {
	base := w.cfg.PollInterval
	jitter := w.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
