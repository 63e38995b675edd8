package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EntityMention holds the schema definition for the EntityMention entity —
// every occurrence of an entity in a revision, with character offsets.
type EntityMention struct {
	ent.Schema
}

// Fields of the EntityMention.
func (EntityMention) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("mention_id").
			Unique().
			Immutable(),
		field.String("entity_id").
			Immutable(),
		field.String("artifact_uid").
			Immutable(),
		field.String("revision_id").
			Immutable(),
		field.String("surface_form").
			Immutable(),
		field.Int("start_char").
			Immutable(),
		field.Int("end_char").
			Immutable(),
	}
}

// Edges of the EntityMention.
func (EntityMention) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("entity", Entity.Type).
			Ref("mentions").
			Field("entity_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EntityMention.
func (EntityMention) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("artifact_uid", "revision_id"),
		index.Fields("entity_id"),
	}
}
