package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EntityRelation holds the schema definition for the EntityRelation entity —
// the materialized POSSIBLY_SAME edge between two entities the resolver
// could not confidently merge. Undirected in meaning; stored as a single
// ordered row (entity_id < other_entity_id lexically) to avoid duplicates.
// Can be cyclic and is never auto-merged — left for human review.
type EntityRelation struct {
	ent.Schema
}

// Fields of the EntityRelation.
func (EntityRelation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("relation_id").
			Unique().
			Immutable(),
		field.String("entity_id").
			Immutable(),
		field.String("other_entity_id").
			Immutable(),
		field.Float("confidence").
			Immutable(),
		field.String("reason").
			Immutable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the EntityRelation.
func (EntityRelation) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("entity_id", "other_entity_id").
			Unique(),
		index.Fields("other_entity_id"),
	}
}
