package ingester

import (
	"context"
	"fmt"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/artifactrevision"
	"github.com/hybridmem/memstore/ent/chunk"
	"github.com/hybridmem/memstore/ent/entitymention"
	"github.com/hybridmem/memstore/ent/eventevidence"
	"github.com/hybridmem/memstore/ent/graphedge"
	"github.com/hybridmem/memstore/ent/graphnode"
	"github.com/hybridmem/memstore/ent/semanticevent"
	"github.com/hybridmem/memstore/pkg/memory"
	"github.com/hybridmem/memstore/pkg/vectorindex"
)

// demoteAndCascade implements spec.md §4.3 step 3's "different latest
// revision exists" branch: existing stops being latest, and everything
// derived from it (chunks, vectors, events/evidence/actor/subject rows,
// mentions, and this revision's slice of the graph projection) is removed.
// Aliases and Entity rows themselves are never touched here — they are
// shared across revisions.
func (i *Ingester) demoteAndCascade(ctx context.Context, existing *ent.ArtifactRevision) error {
	oldChunks, err := i.client.Chunk.Query().Where(chunk.RevisionIDEQ(existing.ID)).All(ctx)
	if err != nil {
		return fmt.Errorf("ingester: query prior chunks: %w", err)
	}

	tx, err := i.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("ingester: begin demote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ArtifactRevision.UpdateOne(existing).SetIsLatest(false).Exec(ctx); err != nil {
		return fmt.Errorf("ingester: demote prior latest: %w", err)
	}
	if _, err := tx.Chunk.Delete().Where(chunk.RevisionIDEQ(existing.ID)).Exec(ctx); err != nil {
		return fmt.Errorf("ingester: delete prior chunks: %w", err)
	}
	if err := deleteRevisionDerivedRows(ctx, tx, existing.ArtifactUID, existing.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ingester: commit demote: %w", err)
	}

	i.deleteRevisionVectors(ctx, existing.ID, oldChunks)
	return nil
}

// deleteRevisionDerivedRows removes the event/evidence (actors/subjects
// cascade with the event row), mention, and revision-scoped graph rows for
// one (artifact_uid, revision_id). Shared by demoteAndCascade and Forget.
func deleteRevisionDerivedRows(ctx context.Context, tx *ent.Tx, artifactUID, revisionID string) error {
	events, err := tx.SemanticEvent.Query().
		Where(semanticevent.ArtifactUIDEQ(artifactUID), semanticevent.RevisionIDEQ(revisionID)).
		All(ctx)
	if err != nil {
		return fmt.Errorf("ingester: query prior events: %w", err)
	}
	eventIDs := make([]string, len(events))
	for idx, ev := range events {
		eventIDs[idx] = ev.ID
	}
	if len(eventIDs) > 0 {
		if _, err := tx.EventEvidence.Delete().Where(eventevidence.EventIDIn(eventIDs...)).Exec(ctx); err != nil {
			return fmt.Errorf("ingester: delete prior evidence: %w", err)
		}
		if _, err := tx.SemanticEvent.Delete().Where(semanticevent.IDIn(eventIDs...)).Exec(ctx); err != nil {
			return fmt.Errorf("ingester: delete prior events: %w", err)
		}
	}
	if _, err := tx.EntityMention.Delete().
		Where(entitymention.ArtifactUIDEQ(artifactUID), entitymention.RevisionIDEQ(revisionID)).
		Exec(ctx); err != nil {
		return fmt.Errorf("ingester: delete prior mentions: %w", err)
	}
	if _, err := tx.GraphEdge.Delete().
		Where(graphedge.ArtifactUIDEQ(artifactUID), graphedge.RevisionIDEQ(revisionID)).
		Exec(ctx); err != nil {
		return fmt.Errorf("ingester: delete prior graph edges: %w", err)
	}
	if _, err := tx.GraphNode.Delete().
		Where(graphnode.NodeTypeEQ(graphnode.NodeTypeEvent), graphnode.RevisionIDEQ(revisionID)).
		Exec(ctx); err != nil {
		return fmt.Errorf("ingester: delete prior event graph nodes: %w", err)
	}
	return nil
}

func (i *Ingester) deleteRevisionVectors(ctx context.Context, revisionID string, chunks []*ent.Chunk) {
	if err := i.vindex.Delete(ctx, vectorindex.CollectionContent, revisionID); err != nil {
		i.logger.Warn("ingester: vector delete for content failed", "revision_id", revisionID, "error", err)
	}
	for _, c := range chunks {
		if err := i.vindex.Delete(ctx, vectorindex.CollectionChunks, c.ID); err != nil {
			i.logger.Warn("ingester: vector delete for chunk failed", "chunk_id", c.ID, "error", err)
		}
	}
}

// Forget deletes every revision of artifactUID and everything derived from
// them, per the forget tool's contract (spec.md §6). cascade.Entities
// counts distinct entities referenced by this artifact's mentions —
// Entity/EntityAlias rows themselves are never deleted, since they may be
// shared with other artifacts; only the links this artifact contributed
// are removed.
func (i *Ingester) Forget(ctx context.Context, artifactUID string) (memory.ForgetCascade, error) {
	revisions, err := i.client.ArtifactRevision.Query().
		Where(artifactrevision.ArtifactUIDEQ(artifactUID)).
		All(ctx)
	if err != nil {
		return memory.ForgetCascade{}, &memory.StoreError{Op: "query_revisions", Err: err}
	}
	if len(revisions) == 0 {
		return memory.ForgetCascade{}, &memory.NotFoundError{ID: artifactUID}
	}

	revisionIDs := make([]string, len(revisions))
	for idx, r := range revisions {
		revisionIDs[idx] = r.ID
	}

	allChunks, err := i.client.Chunk.Query().Where(chunk.RevisionIDIn(revisionIDs...)).All(ctx)
	if err != nil {
		return memory.ForgetCascade{}, &memory.StoreError{Op: "query_chunks", Err: err}
	}

	mentions, err := i.client.EntityMention.Query().
		Where(entitymention.ArtifactUIDEQ(artifactUID)).
		All(ctx)
	if err != nil {
		return memory.ForgetCascade{}, &memory.StoreError{Op: "query_mentions", Err: err}
	}
	entitySeen := make(map[string]struct{}, len(mentions))
	for _, m := range mentions {
		entitySeen[m.EntityID] = struct{}{}
	}

	events, err := i.client.SemanticEvent.Query().
		Where(semanticevent.ArtifactUIDEQ(artifactUID)).
		All(ctx)
	if err != nil {
		return memory.ForgetCascade{}, &memory.StoreError{Op: "query_events", Err: err}
	}

	tx, err := i.client.Tx(ctx)
	if err != nil {
		return memory.ForgetCascade{}, &memory.StoreError{Op: "begin_forget_tx", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	for _, revisionID := range revisionIDs {
		if err := deleteRevisionDerivedRows(ctx, tx, artifactUID, revisionID); err != nil {
			return memory.ForgetCascade{}, &memory.StoreError{Op: "delete_revision_derived", Err: err}
		}
	}
	if _, err := tx.Chunk.Delete().Where(chunk.RevisionIDIn(revisionIDs...)).Exec(ctx); err != nil {
		return memory.ForgetCascade{}, &memory.StoreError{Op: "delete_chunks", Err: err}
	}
	if _, err := tx.ArtifactRevision.Delete().Where(artifactrevision.IDIn(revisionIDs...)).Exec(ctx); err != nil {
		return memory.ForgetCascade{}, &memory.StoreError{Op: "delete_revisions", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return memory.ForgetCascade{}, &memory.StoreError{Op: "commit_forget", Err: err}
	}

	for _, revisionID := range revisionIDs {
		if err := i.vindex.Delete(ctx, vectorindex.CollectionContent, revisionID); err != nil {
			i.logger.Warn("ingester: forget vector delete for content failed", "revision_id", revisionID, "error", err)
		}
	}
	for _, c := range allChunks {
		if err := i.vindex.Delete(ctx, vectorindex.CollectionChunks, c.ID); err != nil {
			i.logger.Warn("ingester: forget vector delete for chunk failed", "chunk_id", c.ID, "error", err)
		}
	}

	return memory.ForgetCascade{
		Chunks:   len(allChunks),
		Events:   len(events),
		Entities: len(entitySeen),
	}, nil
}
