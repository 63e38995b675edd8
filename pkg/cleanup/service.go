// Package cleanup provides background data retention for the job queue:
// purging terminal EventJob rows and sweeping EventEvidence rows whose
// SemanticEvent no longer exists. Grounded
// on the teacher's pkg/cleanup service loop shape (start/stop/run-on-
// interval), re-pointed from session/event retention to job/evidence
// retention.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/eventevidence"
	"github.com/hybridmem/memstore/ent/eventjob"
	"github.com/hybridmem/memstore/ent/semanticevent"
	"github.com/hybridmem/memstore/pkg/config"
)

// Service periodically enforces retention policies:
//   - Purges terminal FAILED EventJob rows past FailedJobTTL
//   - Purges terminal DONE EventJob rows past DoneJobTTL
//   - Purges EventEvidence rows whose parent SemanticEvent no longer
//     exists (a safety net for rows written with foreign-key enforcement
//     bypassed, e.g. by a restore; the normal delete path cascades from
//     event to evidence)
//
// All operations are idempotent and safe to run from multiple processes.
type Service struct {
	client *ent.Client
	config *config.RetentionConfig

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService constructs a cleanup Service.
func NewService(client *ent.Client, cfg *config.RetentionConfig) *Service {
	return &Service{client: client, config: cfg}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup service started",
		"failed_job_ttl", s.config.FailedJobTTL,
		"done_job_ttl", s.config.DoneJobTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeTerminalJobs(ctx)
	s.purgeOrphanedEvidence(ctx)
}

func (s *Service) purgeTerminalJobs(ctx context.Context) {
	failed, err := s.client.EventJob.Delete().
		Where(
			eventjob.StatusEQ(eventjob.StatusFAILED),
			eventjob.UpdatedAtLT(time.Now().Add(-s.config.FailedJobTTL)),
		).
		Exec(ctx)
	if err != nil {
		slog.Error("retention: purge failed jobs failed", "error", err)
	} else if failed > 0 {
		slog.Info("retention: purged failed jobs", "count", failed)
	}

	done, err := s.client.EventJob.Delete().
		Where(
			eventjob.StatusEQ(eventjob.StatusDONE),
			eventjob.UpdatedAtLT(time.Now().Add(-s.config.DoneJobTTL)),
		).
		Exec(ctx)
	if err != nil {
		slog.Error("retention: purge done jobs failed", "error", err)
	} else if done > 0 {
		slog.Info("retention: purged done jobs", "count", done)
	}
}

// purgeOrphanedEvidence deletes EventEvidence rows whose event_id has no
// corresponding SemanticEvent. EventEvidence carries no timestamp of its
// own to age-gate against OrphanedEvidenceTTL, so instead of a TTL check
// this treats the anti-join itself as the signal: the evidence foreign key
// cascades on delete and the replace-write runs in one transaction, so such
// a row can only exist if it was written with foreign-key enforcement
// bypassed (a bug or a restore) — there is no legitimate state in which the
// join is ever intentionally broken, so age adds no additional safety here.
func (s *Service) purgeOrphanedEvidence(ctx context.Context) {
	eventIDs, err := s.client.EventEvidence.Query().
		GroupBy(eventevidence.FieldEventID).
		Strings(ctx)
	if err != nil {
		slog.Error("retention: list evidence event ids failed", "error", err)
		return
	}
	if len(eventIDs) == 0 {
		return
	}

	existing, err := s.client.SemanticEvent.Query().
		Where(semanticevent.IDIn(eventIDs...)).
		IDs(ctx)
	if err != nil {
		slog.Error("retention: check existing events failed", "error", err)
		return
	}
	existingSet := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		existingSet[id] = struct{}{}
	}

	var orphaned []string
	for _, id := range eventIDs {
		if _, ok := existingSet[id]; !ok {
			orphaned = append(orphaned, id)
		}
	}
	if len(orphaned) == 0 {
		return
	}

	count, err := s.client.EventEvidence.Delete().
		Where(eventevidence.EventIDIn(orphaned...)).
		Exec(ctx)
	if err != nil {
		slog.Error("retention: purge orphaned evidence failed", "error", err)
		return
	}
	slog.Warn("retention: purged orphaned evidence", "event_count", len(orphaned), "row_count", count)
}
