package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EntityAlias holds the schema definition for the EntityAlias entity —
// alternate surface forms bound to a canonical entity.
type EntityAlias struct {
	ent.Schema
}

// Fields of the EntityAlias.
func (EntityAlias) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("alias_id").
			Unique().
			Immutable(),
		field.String("entity_id").
			Immutable(),
		field.String("alias").
			Immutable(),
		field.String("normalized_alias").
			Immutable(),
	}
}

// Edges of the EntityAlias.
func (EntityAlias) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("entity", Entity.Type).
			Ref("aliases").
			Field("entity_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EntityAlias.
func (EntityAlias) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("entity_id", "normalized_alias").
			Unique(),
	}
}
