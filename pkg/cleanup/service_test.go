package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/eventjob"
	"github.com/hybridmem/memstore/pkg/config"
	testdb "github.com/hybridmem/memstore/test/database"
)

func testConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		FailedJobTTL:        24 * time.Hour,
		DoneJobTTL:          24 * time.Hour,
		OrphanedEvidenceTTL: 1 * time.Hour,
		CleanupInterval:     time.Hour,
	}
}

func TestPurgeTerminalJobs_DeletesFailedAndDonePastTTLButKeepsRecent(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()
	svc := NewService(client.Client, testConfig())

	stale, err := client.EventJob.Create().
		SetID(uuid.NewString()).
		SetArtifactUID("artifact-1").
		SetRevisionID("rev-1").
		SetJobType(eventjob.JobTypeExtractEvents).
		SetStatus(eventjob.StatusFAILED).
		Save(ctx)
	require.NoError(t, err)
	_, err = stale.Update().SetUpdatedAt(time.Now().Add(-48 * time.Hour)).Save(ctx)
	require.NoError(t, err)

	recent, err := client.EventJob.Create().
		SetID(uuid.NewString()).
		SetArtifactUID("artifact-2").
		SetRevisionID("rev-1").
		SetJobType(eventjob.JobTypeExtractEvents).
		SetStatus(eventjob.StatusFAILED).
		Save(ctx)
	require.NoError(t, err)

	done, err := client.EventJob.Create().
		SetID(uuid.NewString()).
		SetArtifactUID("artifact-3").
		SetRevisionID("rev-1").
		SetJobType(eventjob.JobTypeGraphUpsert).
		SetStatus(eventjob.StatusDONE).
		Save(ctx)
	require.NoError(t, err)
	_, err = done.Update().SetUpdatedAt(time.Now().Add(-48 * time.Hour)).Save(ctx)
	require.NoError(t, err)

	svc.purgeTerminalJobs(ctx)

	_, err = client.EventJob.Get(ctx, stale.ID)
	assert.True(t, ent.IsNotFound(err), "stale failed job should be purged")

	_, err = client.EventJob.Get(ctx, recent.ID)
	assert.NoError(t, err, "recent failed job should survive")

	_, err = client.EventJob.Get(ctx, done.ID)
	assert.True(t, ent.IsNotFound(err), "stale done job should be purged")
}

func TestPurgeTerminalJobs_KeepsPendingAndProcessingRegardlessOfAge(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()
	svc := NewService(client.Client, testConfig())

	pending, err := client.EventJob.Create().
		SetID(uuid.NewString()).
		SetArtifactUID("artifact-4").
		SetRevisionID("rev-1").
		SetJobType(eventjob.JobTypeExtractEvents).
		SetStatus(eventjob.StatusPENDING).
		Save(ctx)
	require.NoError(t, err)
	_, err = pending.Update().SetUpdatedAt(time.Now().Add(-72 * time.Hour)).Save(ctx)
	require.NoError(t, err)

	processing, err := client.EventJob.Create().
		SetID(uuid.NewString()).
		SetArtifactUID("artifact-5").
		SetRevisionID("rev-1").
		SetJobType(eventjob.JobTypeExtractEvents).
		SetStatus(eventjob.StatusPROCESSING).
		Save(ctx)
	require.NoError(t, err)
	_, err = processing.Update().SetUpdatedAt(time.Now().Add(-72 * time.Hour)).Save(ctx)
	require.NoError(t, err)

	svc.purgeTerminalJobs(ctx)

	_, err = client.EventJob.Get(ctx, pending.ID)
	assert.NoError(t, err)
	_, err = client.EventJob.Get(ctx, processing.ID)
	assert.NoError(t, err)
}

func TestPurgeOrphanedEvidence_DeletesEvidenceWithNoMatchingEvent(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()
	svc := NewService(client.Client, testConfig())

	event, err := client.SemanticEvent.Create().
		SetID(uuid.NewString()).
		SetArtifactUID("artifact-1").
		SetRevisionID("rev-1").
		SetCategory("incident").
		SetNarrative("something happened").
		SetConfidence(0.9).
		SetExtractionRunID(uuid.NewString()).
		Save(ctx)
	require.NoError(t, err)

	linked, err := client.EventEvidence.Create().
		SetID(uuid.NewString()).
		SetEventID(event.ID).
		SetRevisionID("rev-1").
		SetStartChar(0).
		SetEndChar(10).
		SetQuote("something happened").
		Save(ctx)
	require.NoError(t, err)

	// Simulate an orphan: an evidence row whose event_id has no matching
	// SemanticEvent. The normal delete path cascades, so this state is only
	// reachable by bypassing foreign-key enforcement.
	_, err = client.DB().ExecContext(ctx, `SET session_replication_role = 'replica'`)
	require.NoError(t, err)
	orphanID := uuid.NewString()
	_, err = client.DB().ExecContext(ctx,
		`INSERT INTO event_evidence (evidence_id, event_id, revision_id, start_char, end_char, quote)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		orphanID, uuid.NewString(), "rev-1", 0, 5, "orphan quote")
	require.NoError(t, err)
	_, err = client.DB().ExecContext(ctx, `SET session_replication_role = 'origin'`)
	require.NoError(t, err)

	svc.purgeOrphanedEvidence(ctx)

	_, err = client.EventEvidence.Get(ctx, orphanID)
	assert.True(t, ent.IsNotFound(err), "orphaned evidence should be purged")

	_, err = client.EventEvidence.Get(ctx, linked.ID)
	assert.NoError(t, err, "evidence with a live event should survive")
}

func TestPurgeOrphanedEvidence_NoopWhenNoEvidenceExists(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()
	svc := NewService(client.Client, testConfig())

	svc.purgeOrphanedEvidence(ctx)
}

func TestService_StartStopRunsImmediatelyAndStopsCleanly(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()
	cfg := testConfig()
	cfg.CleanupInterval = time.Hour
	svc := NewService(client.Client, cfg)

	svc.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	svc.Stop()
}
