package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/eventjob"
)

// reapState tracks reaper metrics (thread-safe).
type reapState struct {
	mu         sync.Mutex
	lastScan   time.Time
	jobsReaped int
}

// runReaper periodically scans for jobs stuck in PROCESSING past
// ReaperThreshold — the worker that claimed them crashed or was killed
// before calling mark_done/mark_failed — and requeues them.
func (p *WorkerPool) runReaper(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.reapOrphanedJobs(ctx); err != nil {
				slog.Error("queue: reaper scan failed", "error", err)
			}
		}
	}
}

// reapOrphanedJobs resets PROCESSING jobs whose locked_at predates
// ReaperThreshold back to PENDING, leaving attempts untouched (the claim
// that orphaned them already incremented it) so max_attempts is still
// honored across the crash.
func (p *WorkerPool) reapOrphanedJobs(ctx context.Context) error {
	threshold := time.Now().Add(-p.cfg.ReaperThreshold)

	orphans, err := p.client.EventJob.Query().
		Where(
			eventjob.StatusEQ(eventjob.StatusPROCESSING),
			eventjob.LockedAtNotNil(),
			eventjob.LockedAtLT(threshold),
		).
		All(ctx)
	if err != nil {
		return fmt.Errorf("queue: query orphaned jobs: %w", err)
	}

	p.reap.mu.Lock()
	p.reap.lastScan = time.Now()
	p.reap.mu.Unlock()

	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("queue: reaping orphaned jobs", "count", len(orphans))
	reaped := 0
	for _, job := range orphans {
		lockedBy := "unknown"
		if job.LockedBy != nil {
			lockedBy = *job.LockedBy
		}
		if job.Attempts >= job.MaxAttempts {
			if err := p.client.EventJob.UpdateOne(job).
				SetStatus(eventjob.StatusFAILED).
				ClearLockedAt().
				ClearLockedBy().
				SetLastErrorCode("orphaned").
				SetLastErrorMessage(fmt.Sprintf("worker %s stopped heartbeating past max_attempts", lockedBy)).
				Exec(ctx); err != nil {
				slog.Error("queue: failed to fail orphaned job", "job_id", job.ID, "error", err)
				continue
			}
		} else {
			if err := p.client.EventJob.UpdateOne(job).
				SetStatus(eventjob.StatusPENDING).
				ClearLockedAt().
				ClearLockedBy().
				SetNextRunAt(time.Now()).
				Exec(ctx); err != nil {
				slog.Error("queue: failed to requeue orphaned job", "job_id", job.ID, "error", err)
				continue
			}
		}
		reaped++
	}

	p.reap.mu.Lock()
	p.reap.jobsReaped += reaped
	p.reap.mu.Unlock()

	return nil
}

// CleanupStartupOrphans resets any jobs left PROCESSING by a previous
// crashed instance of this process. Called once during startup, before
// the worker pool begins polling.
func CleanupStartupOrphans(ctx context.Context, client *ent.Client) error {
	orphans, err := client.EventJob.Query().
		Where(eventjob.StatusEQ(eventjob.StatusPROCESSING)).
		All(ctx)
	if err != nil {
		return fmt.Errorf("queue: query startup orphans: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("queue: found startup orphans from previous run", "count", len(orphans))
	for _, job := range orphans {
		if err := client.EventJob.UpdateOne(job).
			SetStatus(eventjob.StatusPENDING).
			ClearLockedAt().
			ClearLockedBy().
			SetNextRunAt(time.Now()).
			Exec(ctx); err != nil {
			slog.Error("queue: failed to reset startup orphan", "job_id", job.ID, "error", err)
			continue
		}
		slog.Info("queue: startup orphan requeued", "job_id", job.ID)
	}
	return nil
}
