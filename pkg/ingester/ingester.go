// Package ingester orchestrates the remember write path: validating and
// fingerprinting an incoming artifact, deciding idempotency against prior
// revisions, chunking, embedding, and writing the result across the vector
// index and relational store in the two-phase sequence spec.md §4.3 and §5
// describe. It also owns the cascade-delete logic shared by "a newer
// revision demotes the old one" and the forget tool's full-artifact delete,
// grounded on the teacher's pkg/services create-then-enqueue service shape
// (pkg/services/alert_service.go's validate -> fingerprint -> persist
// sequence) and pkg/queue/worker.go's tx-scoped write pattern.
package ingester

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/artifactrevision"
	"github.com/hybridmem/memstore/ent/eventjob"
	"github.com/hybridmem/memstore/pkg/chunker"
	"github.com/hybridmem/memstore/pkg/config"
	"github.com/hybridmem/memstore/pkg/embedder"
	"github.com/hybridmem/memstore/pkg/memory"
	"github.com/hybridmem/memstore/pkg/vectorindex"
)

// Ingester is the remember-path orchestrator.
type Ingester struct {
	client        *ent.Client
	vindex        vectorindex.Index
	embed         *embedder.Client
	chunkerCfg    chunker.Config
	extractionCfg *config.ExtractionConfig
	queueCfg      *config.QueueConfig
	logger        *slog.Logger
}

// New constructs an Ingester.
func New(client *ent.Client, vindex vectorindex.Index, embed *embedder.Client, chunkerCfg chunker.Config, extractionCfg *config.ExtractionConfig, queueCfg *config.QueueConfig) *Ingester {
	if client == nil {
		panic("ingester: client must not be nil")
	}
	if vindex == nil {
		panic("ingester: vindex must not be nil")
	}
	if embed == nil {
		panic("ingester: embed must not be nil")
	}
	return &Ingester{
		client:        client,
		vindex:        vindex,
		embed:         embed,
		chunkerCfg:    chunkerCfg,
		extractionCfg: extractionCfg,
		queueCfg:      queueCfg,
		logger:        slog.Default(),
	}
}

// phaseAVectors holds the batch embeddings computed ahead of any write.
type phaseAVectors struct {
	Content []float32
	Chunks  [][]float32
}

// Remember implements the six-step remember contract of spec.md §4.3.
func (i *Ingester) Remember(ctx context.Context, req memory.RememberRequest) (memory.RememberResponse, error) {
	req, err := validate(req)
	if err != nil {
		return memory.RememberResponse{}, err
	}

	artifactUID, contentHash, revisionID, artifactID := fingerprint(req)

	existing, err := i.client.ArtifactRevision.Query().
		Where(artifactrevision.ArtifactUIDEQ(artifactUID), artifactrevision.IsLatestEQ(true)).
		Only(ctx)
	switch {
	case err == nil:
		if existing.ContentHash == contentHash {
			return i.existingResponse(ctx, existing)
		}
	case ent.IsNotFound(err):
		existing = nil // no prior revision for this artifact_uid; proceed as a fresh ingest.
	default:
		return memory.RememberResponse{}, &memory.StoreError{Op: "query_latest_revision", Err: err}
	}

	text := chunker.Normalize(req.Content)
	tokenCount := chunker.TokenCount(text)
	var chunks []chunker.Chunk
	isChunked := chunker.ShouldChunk(text, i.chunkerCfg)
	if isChunked {
		chunks = chunker.Chunk(text, artifactID, i.chunkerCfg)
	}

	// Phase A must fully succeed, with no side effects written yet, before
	// any prior revision is demoted (spec.md §4.3 step 5): an embedding
	// failure here must leave the existing latest revision untouched.
	vecs, err := i.embedPhaseA(ctx, text, chunks)
	if err != nil {
		return memory.RememberResponse{}, err
	}

	if existing != nil {
		if err := i.demoteAndCascade(ctx, existing); err != nil {
			return memory.RememberResponse{}, &memory.StoreError{Op: "demote_prior_latest", Err: err}
		}
	}

	eventsQueued, err := i.writePhaseB(ctx, req, artifactUID, contentHash, revisionID, artifactID, text, tokenCount, isChunked, chunks)
	if err != nil {
		return memory.RememberResponse{}, err
	}

	if err := i.upsertVectors(ctx, revisionID, chunks, vecs); err != nil {
		return memory.RememberResponse{}, &memory.StoreError{Op: "vector_upsert", Err: err}
	}

	return memory.RememberResponse{
		ID:           artifactUID,
		IsChunked:    isChunked,
		NumChunks:    len(chunks),
		EventsQueued: eventsQueued,
		Status:       "ok",
	}, nil
}

func (i *Ingester) existingResponse(ctx context.Context, rev *ent.ArtifactRevision) (memory.RememberResponse, error) {
	queued, err := i.client.EventJob.Query().
		Where(eventjob.ArtifactUIDEQ(rev.ArtifactUID), eventjob.RevisionIDEQ(rev.ID), eventjob.JobTypeEQ(eventjob.JobTypeExtractEvents)).
		Exist(ctx)
	if err != nil {
		return memory.RememberResponse{}, &memory.StoreError{Op: "query_existing_job", Err: err}
	}
	return memory.RememberResponse{
		ID:           rev.ArtifactUID,
		IsChunked:    rev.IsChunked,
		NumChunks:    rev.ChunkCount,
		EventsQueued: queued,
		Status:       "ok",
	}, nil
}

// embedPhaseA computes content+chunk embeddings in one batch call, aborting
// with no side effects if any fail (spec.md §4.3 step 5, Phase A).
func (i *Ingester) embedPhaseA(ctx context.Context, text string, chunks []chunker.Chunk) (phaseAVectors, error) {
	texts := make([]string, 0, 1+len(chunks))
	texts = append(texts, text)
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	vecs, err := i.embed.EmbedBatch(ctx, texts)
	if err != nil {
		return phaseAVectors{}, &memory.EmbeddingError{Err: err}
	}
	return phaseAVectors{Content: vecs[0], Chunks: vecs[1:]}, nil
}

// writePhaseB inserts the revision and its chunks and enqueues
// extract_events, all within one ent transaction (spec.md §4.3 step 5,
// Phase B). Vector-index writes happen separately, after commit — see
// pkg/vectorindex/pgvector's doc comment on why Upsert requires the
// relational row to exist first.
func (i *Ingester) writePhaseB(ctx context.Context, req memory.RememberRequest, artifactUID, contentHash, revisionID, artifactID, text string, tokenCount int, isChunked bool, chunks []chunker.Chunk) (bool, error) {
	tx, err := i.client.Tx(ctx)
	if err != nil {
		return false, &memory.StoreError{Op: "begin_tx", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	create := tx.ArtifactRevision.Create().
		SetID(revisionID).
		SetArtifactUID(artifactUID).
		SetArtifactID(artifactID).
		SetArtifactType(artifactrevision.ArtifactType(artifactTypeForContext(req.Context))).
		SetContentHash(contentHash).
		SetContent(text).
		SetTokenCount(tokenCount).
		SetIsChunked(isChunked).
		SetChunkCount(len(chunks)).
		SetIsLatest(true).
		SetSensitivity(artifactrevision.Sensitivity(req.Sensitivity)).
		SetVisibilityScope(artifactrevision.VisibilityScope(req.VisibilityScope)).
		SetRetentionPolicy(artifactrevision.RetentionPolicy(req.RetentionPolicy)).
		SetSource(req.Context).
		SetImportance(req.Importance)

	if req.Source != "" {
		create = create.SetSourceSystem(req.Source)
	}
	if req.SourceID != "" {
		create = create.SetSourceID(req.SourceID)
	}
	if req.SourceURL != "" {
		create = create.SetSourceURL(req.SourceURL)
	}
	if req.Title != "" {
		create = create.SetTitle(req.Title)
	}
	if req.Author != "" {
		create = create.SetAuthor(req.Author)
	}
	if len(req.Participants) > 0 {
		create = create.SetParticipants(req.Participants)
	}
	if req.Date != nil {
		create = create.SetDocumentDate(*req.Date)
	}
	if req.Context == "conversation" {
		create = create.SetConversationID(req.ConversationID).SetTurnIndex(*req.TurnIndex)
		if req.Role != "" {
			create = create.SetRole(req.Role)
		}
	}

	if err := create.Exec(ctx); err != nil {
		return false, &memory.StoreError{Op: "insert_revision", Err: err}
	}

	for _, c := range chunks {
		if err := tx.Chunk.Create().
			SetID(c.ID).
			SetRevisionID(revisionID).
			SetArtifactID(artifactID).
			SetIndex(c.Index).
			SetStartChar(c.StartChar).
			SetEndChar(c.EndChar).
			SetTokenCount(c.TokenCount).
			SetContentHash(chunker.ContentHash(c.Text)).
			SetText(c.Text).
			Exec(ctx); err != nil {
			return false, &memory.StoreError{Op: "insert_chunk", Err: err}
		}
	}

	eventsQueued := shouldQueueEvents(req.Context, tokenCount, i.extractionCfg.ShortTurnSkipTokens)
	if eventsQueued {
		if err := tx.EventJob.Create().
			SetID(uuid.NewString()).
			SetArtifactUID(artifactUID).
			SetRevisionID(revisionID).
			SetJobType(eventjob.JobTypeExtractEvents).
			SetMaxAttempts(i.queueCfg.EventMaxAttempts).
			OnConflictColumns("artifact_uid", "revision_id", "job_type").
			DoNothing().
			Exec(ctx); err != nil {
			return false, &memory.StoreError{Op: "enqueue_extract_events", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, &memory.StoreError{Op: "commit", Err: err}
	}
	return eventsQueued, nil
}

func (i *Ingester) upsertVectors(ctx context.Context, revisionID string, chunks []chunker.Chunk, vecs phaseAVectors) error {
	if err := i.vindex.Upsert(ctx, vectorindex.CollectionContent, revisionID, vecs.Content, nil); err != nil {
		return fmt.Errorf("upsert content vector: %w", err)
	}
	for idx, c := range chunks {
		if err := i.vindex.Upsert(ctx, vectorindex.CollectionChunks, c.ID, vecs.Chunks[idx], nil); err != nil {
			return fmt.Errorf("upsert chunk vector %s: %w", c.ID, err)
		}
	}
	return nil
}
