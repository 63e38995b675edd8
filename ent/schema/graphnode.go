package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// GraphNode holds the schema definition for the GraphNode entity — the
// materialized graph index's node table. Not the source of truth: Entity
// and SemanticEvent rows are authoritative; GraphNode/GraphEdge are an
// eventually-consistent projection rebuilt per revision by the graph
// materializer (pkg/graph).
type GraphNode struct {
	ent.Schema
}

// Fields of the GraphNode.
func (GraphNode) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable().
			Comment("entity_id or event_id, reused verbatim from the source row"),
		field.Enum("node_type").
			Values("entity", "event").
			Immutable(),
		// revision_id is set only on event nodes: the revision the event
		// belongs to, used to scope replace-not-merge re-materialization.
		// Entity nodes are shared across revisions and left nil here.
		field.String("revision_id").
			Optional().
			Nillable(),
		field.String("artifact_uid").
			Optional().
			Nillable(),
		// Event-node properties.
		field.String("category").
			Optional().
			Nillable(),
		field.Time("event_time").
			Optional().
			Nillable(),
		// Entity-node properties.
		field.String("canonical_name").
			Optional().
			Nillable(),
		field.String("entity_type").
			Optional().
			Nillable(),
	}
}

// Indexes of the GraphNode.
func (GraphNode) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("node_type", "revision_id"),
		index.Fields("artifact_uid", "revision_id"),
	}
}
