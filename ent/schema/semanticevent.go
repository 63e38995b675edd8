package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SemanticEvent holds the schema definition for the SemanticEvent entity.
// A canonicalized event extracted from a revision. The set of events for a
// given (artifact_uid, revision_id) is replaced atomically on every
// successful extraction run — never appended incrementally.
type SemanticEvent struct {
	ent.Schema
}

// Fields of the SemanticEvent.
func (SemanticEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("event_id").
			Unique().
			Immutable(),
		field.String("artifact_uid").
			Immutable(),
		field.String("revision_id").
			Immutable(),
		field.String("category").
			Immutable().
			Comment("free-form, 1-100 chars; legacy fixed set normalized from plurals"),
		field.Time("event_time").
			Optional().
			Nillable().
			Immutable(),
		field.Text("narrative").
			Immutable().
			Comment("1-2 sentences"),
		field.JSON("subject_json", map[string]interface{}{}).
			Optional().
			Immutable(),
		field.JSON("actors_json", []map[string]interface{}{}).
			Optional().
			Immutable(),
		field.Float("confidence").
			Immutable().
			Comment("clamped to [0,1] at write time"),
		field.String("extraction_run_id").
			Immutable().
			Comment("job_id of the extraction run that produced this event"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the SemanticEvent.
func (SemanticEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("evidence", EventEvidence.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("actors", EventActor.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
		edge.To("subjects", EventSubject.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the SemanticEvent.
func (SemanticEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("artifact_uid", "revision_id"),
		index.Fields("category"),
		index.Fields("event_time"),
	}
}
