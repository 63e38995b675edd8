// Package graph materializes the relational event/entity/actor/subject/relation rows
// written by the extractor and resolver into a separate, eventually
// consistent graph index (GraphNode/GraphEdge), and serves the one-hop
// expansion queries the retriever uses. The graph is a relational
// projection using composite-indexed link tables (ADR-004: Entity and
// Event nodes only; Revision/Artifact nodes are deliberately omitted), not
// the source of truth — SemanticEvent/Entity/EventActor/EventSubject are.
package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/entity"
	"github.com/hybridmem/memstore/ent/entityrelation"
	"github.com/hybridmem/memstore/ent/eventactor"
	"github.com/hybridmem/memstore/ent/eventsubject"
	"github.com/hybridmem/memstore/ent/graphedge"
	"github.com/hybridmem/memstore/ent/graphnode"
	"github.com/hybridmem/memstore/ent/semanticevent"
)

// Materializer rewrites graph state for one (artifact_uid, revision_id).
type Materializer struct {
	client *ent.Client
}

// New constructs a Materializer.
func New(client *ent.Client) *Materializer {
	return &Materializer{client: client}
}

// Upsert consumes (artifactUID, revisionID) and replaces its event nodes,
// ACTED_IN/ABOUT edges, and upserts entity nodes plus any POSSIBLY_SAME
// edges for entities referenced by this revision. Nodes/edges scoped to
// the revision are replaced, not merged, so re-running is idempotent.
func (m *Materializer) Upsert(ctx context.Context, artifactUID, revisionID string) error {
	events, err := m.client.SemanticEvent.Query().
		Where(semanticevent.ArtifactUIDEQ(artifactUID), semanticevent.RevisionIDEQ(revisionID)).
		All(ctx)
	if err != nil {
		return fmt.Errorf("graph: query events: %w", err)
	}
	eventIDs := make([]string, len(events))
	for i, ev := range events {
		eventIDs[i] = ev.ID
	}

	actors, err := m.client.EventActor.Query().Where(eventactor.EventIDIn(eventIDs...)).All(ctx)
	if err != nil {
		return fmt.Errorf("graph: query actors: %w", err)
	}
	subjects, err := m.client.EventSubject.Query().Where(eventsubject.EventIDIn(eventIDs...)).All(ctx)
	if err != nil {
		return fmt.Errorf("graph: query subjects: %w", err)
	}

	entityIDs := uniqueStrings(func() []string {
		var ids []string
		for _, a := range actors {
			ids = append(ids, a.EntityID)
		}
		for _, s := range subjects {
			ids = append(ids, s.EntityID)
		}
		return ids
	}())

	var entities []*ent.Entity
	if len(entityIDs) > 0 {
		entities, err = m.client.Entity.Query().Where(entity.IDIn(entityIDs...)).All(ctx)
		if err != nil {
			return fmt.Errorf("graph: query entities: %w", err)
		}
	}

	relations, err := m.possiblySameRelations(ctx, entityIDs)
	if err != nil {
		return fmt.Errorf("graph: query possibly-same relations: %w", err)
	}

	tx, err := m.client.Tx(ctx)
	if err != nil {
		return fmt.Errorf("graph: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Replace this revision's event nodes and ACTED_IN/ABOUT edges.
	if _, err := tx.GraphEdge.Delete().
		Where(graphedge.ArtifactUIDEQ(artifactUID), graphedge.RevisionIDEQ(revisionID)).
		Exec(ctx); err != nil {
		return fmt.Errorf("graph: delete stale edges: %w", err)
	}
	if _, err := tx.GraphNode.Delete().
		Where(graphnode.NodeTypeEQ(graphnode.NodeTypeEvent), graphnode.RevisionIDEQ(revisionID)).
		Exec(ctx); err != nil {
		return fmt.Errorf("graph: delete stale event nodes: %w", err)
	}

	for _, ev := range events {
		create := tx.GraphNode.Create().
			SetID(ev.ID).
			SetNodeType(graphnode.NodeTypeEvent).
			SetRevisionID(revisionID).
			SetArtifactUID(artifactUID).
			SetCategory(ev.Category)
		if ev.EventTime != nil {
			create = create.SetEventTime(*ev.EventTime)
		}
		if err := create.Exec(ctx); err != nil {
			return fmt.Errorf("graph: insert event node: %w", err)
		}
	}

	for _, en := range entities {
		if err := tx.GraphNode.Create().
			SetID(en.ID).
			SetNodeType(graphnode.NodeTypeEntity).
			SetCanonicalName(en.CanonicalName).
			SetEntityType(string(en.EntityType)).
			OnConflictColumns("id").
			UpdateNewValues().
			Exec(ctx); err != nil {
			return fmt.Errorf("graph: upsert entity node: %w", err)
		}
	}

	for _, a := range actors {
		create := tx.GraphEdge.Create().
			SetID(uuid.NewString()).
			SetEdgeType(graphedge.EdgeTypeACTED_IN).
			SetFromID(a.EntityID).
			SetToID(a.EventID).
			SetArtifactUID(artifactUID).
			SetRevisionID(revisionID)
		if a.Role != nil {
			create = create.SetRole(*a.Role)
		}
		if err := create.Exec(ctx); err != nil {
			return fmt.Errorf("graph: insert ACTED_IN edge: %w", err)
		}
	}
	for _, s := range subjects {
		if err := tx.GraphEdge.Create().
			SetID(uuid.NewString()).
			SetEdgeType(graphedge.EdgeTypeABOUT).
			SetFromID(s.EventID).
			SetToID(s.EntityID).
			SetArtifactUID(artifactUID).
			SetRevisionID(revisionID).
			Exec(ctx); err != nil {
			return fmt.Errorf("graph: insert ABOUT edge: %w", err)
		}
	}

	for _, rel := range relations {
		if err := tx.GraphEdge.Create().
			SetID(uuid.NewString()).
			SetEdgeType(graphedge.EdgeTypePOSSIBLY_SAME).
			SetFromID(rel.EntityID).
			SetToID(rel.OtherEntityID).
			SetConfidence(rel.Confidence).
			SetReason(rel.Reason).
			OnConflictColumns("from_id", "to_id", "edge_type").
			DoNothing().
			Exec(ctx); err != nil {
			return fmt.Errorf("graph: upsert POSSIBLY_SAME edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("graph: commit: %w", err)
	}
	return nil
}

func (m *Materializer) possiblySameRelations(ctx context.Context, entityIDs []string) ([]*ent.EntityRelation, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	return m.client.EntityRelation.Query().
		Where(entityrelation.Or(
			entityrelation.EntityIDIn(entityIDs...),
			entityrelation.OtherEntityIDIn(entityIDs...),
		)).
		All(ctx)
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
