package queue

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/cenkalti/backoff/v4"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/eventjob"
)

// claimJobByType implements spec.md §4.4's claim_job_by_type: select one
// PENDING, due row of the given type with a non-blocking exclusive lock
// that skips already-locked rows, then mark it PROCESSING. The contract
// requires job_type to always be supplied explicitly — the teacher's
// original claim_job() took no type and silently let graph_upsert rows
// flow through the extraction path; this signature makes that bug
// unrepresentable.
func claimJobByType(ctx context.Context, client *ent.Client, workerID, jobType string) (*claimedJob, error) {
	tx, err := client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row, err := tx.EventJob.Query().
		Where(
			eventjob.StatusEQ(eventjob.StatusPENDING),
			eventjob.JobTypeEQ(eventjob.JobType(jobType)),
			eventjob.NextRunAtLTE(time.Now()),
		).
		Order(ent.Asc(eventjob.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("queue: query pending job: %w", err)
	}

	row, err = row.Update().
		SetStatus(eventjob.StatusPROCESSING).
		SetLockedAt(time.Now()).
		SetLockedBy(workerID).
		SetAttempts(row.Attempts + 1).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: claim job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("queue: commit claim: %w", err)
	}

	return &claimedJob{
		ID:          row.ID,
		JobType:     string(row.JobType),
		ArtifactUID: row.ArtifactUID,
		RevisionID:  row.RevisionID,
		Attempts:    row.Attempts,
	}, nil
}

// markDone implements mark_done: terminal DONE, lock cleared.
func markDone(ctx context.Context, client *ent.Client, jobID string) error {
	return client.EventJob.UpdateOneID(jobID).
		SetStatus(eventjob.StatusDONE).
		ClearLockedAt().
		ClearLockedBy().
		Exec(ctx)
}

// markFailed implements mark_failed. When retry is false or attempts has
// reached max_attempts, the job becomes terminally FAILED; otherwise it
// goes back to PENDING with an exponential backoff plus jitter applied to
// next_run_at.
func markFailed(ctx context.Context, client *ent.Client, cfg backoffConfig, jobID string, attempts, maxAttempts int, retry bool, errCode, errMsg string) error {
	update := client.EventJob.UpdateOneID(jobID).
		ClearLockedAt().
		ClearLockedBy().
		SetLastErrorCode(errCode).
		SetLastErrorMessage(errMsg)

	if !retry || attempts >= maxAttempts {
		return update.SetStatus(eventjob.StatusFAILED).Exec(ctx)
	}

	return update.
		SetStatus(eventjob.StatusPENDING).
		SetNextRunAt(time.Now().Add(backoffDelay(cfg, attempts))).
		Exec(ctx)
}

// backoffConfig is the subset of config.QueueConfig backoffDelay needs.
type backoffConfig struct {
	Base time.Duration
	Max  time.Duration
}

// backoffDelay computes base * 2^(attempts-1), capped at Max, plus the
// RandomizationFactor jitter cenkalti/backoff applies on every step — the
// same exponential-backoff policy llmclient.Client uses for in-process LLM
// retries, reused here to compute the next_run_at a failed job is
// requeued to rather than retried inline.
func backoffDelay(cfg backoffConfig, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.Base
	b.Multiplier = 2
	b.MaxInterval = cfg.Max
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0 // this instance only computes one step at a time
	b.Reset()

	var delay time.Duration
	for i := 0; i < attempts; i++ {
		delay = b.NextBackOff()
	}
	if delay > cfg.Max {
		delay = cfg.Max
	}
	return delay
}
