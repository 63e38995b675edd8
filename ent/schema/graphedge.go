package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GraphEdge holds the schema definition for the GraphEdge entity — the
// materialized graph index's edge table (ACTED_IN, ABOUT, POSSIBLY_SAME).
// Rebuilt per revision by the graph materializer; from_id/to_id are
// GraphNode IDs, not foreign keys, since ACTED_IN/ABOUT/POSSIBLY_SAME cross
// the entity/event node-type boundary and POSSIBLY_SAME is entity-entity.
type GraphEdge struct {
	ent.Schema
}

// Fields of the GraphEdge.
func (GraphEdge) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.Enum("edge_type").
			Values("ACTED_IN", "ABOUT", "POSSIBLY_SAME").
			Immutable(),
		field.String("from_id").
			Immutable(),
		field.String("to_id").
			Immutable(),
		field.String("role").
			Optional().
			Nillable().
			Comment("ACTED_IN only"),
		field.Float("confidence").
			Optional().
			Nillable().
			Comment("POSSIBLY_SAME only"),
		field.String("reason").
			Optional().
			Nillable().
			Comment("POSSIBLY_SAME only"),
		// artifact_uid/revision_id scope ACTED_IN/ABOUT edges for
		// replace-not-merge re-materialization; left nil for POSSIBLY_SAME
		// edges, which are not owned by any single revision.
		field.String("artifact_uid").
			Optional().
			Nillable(),
		field.String("revision_id").
			Optional().
			Nillable(),
	}
}

// Indexes of the GraphEdge.
func (GraphEdge) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("from_id", "edge_type"),
		index.Fields("to_id", "edge_type"),
		index.Fields("artifact_uid", "revision_id"),
		index.Fields("from_id", "to_id", "edge_type").
			Unique(),
	}
}
