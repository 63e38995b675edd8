package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Entity holds the schema definition for the Entity entity — the canonical
// entity registry resolved from potentially many surface forms.
type Entity struct {
	ent.Schema
}

// Fields of the Entity.
func (Entity) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("entity_id").
			Unique().
			Immutable(),
		field.Enum("entity_type").
			Values("person", "org", "project", "object", "place", "other").
			Immutable(),
		field.String("canonical_name"),
		field.String("normalized_name").
			Comment("lowercase, collapsed whitespace"),
		field.String("role").
			Optional().
			Nillable(),
		field.String("organization").
			Optional().
			Nillable(),
		field.String("email").
			Optional().
			Nillable(),
		// context_embedding is stored out-of-band as a pgvector column added by
		// a raw-SQL migration (ent has no native vector field type); see
		// pkg/database/migrations.go and pkg/resolver's candidate search.
		field.String("first_seen_artifact_uid").
			Immutable(),
		field.String("first_seen_revision_id").
			Immutable(),
		field.Bool("needs_review").
			Default(false),
	}
}

// Edges of the Entity.
func (Entity) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("aliases", EntityAlias.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("mentions", EntityMention.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Entity.
func (Entity) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("entity_type", "normalized_name"),
		index.Fields("needs_review"),
	}
}

// Annotations for PostgreSQL-specific features (pgvector column + index are
// added via raw SQL migration, see pkg/database/migrations).
func (Entity) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
