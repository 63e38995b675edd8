package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EventEvidence holds the schema definition for the EventEvidence entity.
// A text span supporting an event, cascade-deleted with it.
type EventEvidence struct {
	ent.Schema
}

// Fields of the EventEvidence.
func (EventEvidence) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("evidence_id").
			Unique().
			Immutable(),
		field.String("event_id").
			Immutable(),
		field.String("revision_id").
			Immutable(),
		field.String("chunk_id").
			Optional().
			Nillable().
			Immutable(),
		field.Int("start_char").
			Immutable(),
		field.Int("end_char").
			Immutable(),
		field.String("quote").
			Immutable().
			Comment("<= 25 words"),
	}
}

// Edges of the EventEvidence.
func (EventEvidence) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("event", SemanticEvent.Type).
			Ref("evidence").
			Field("event_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EventEvidence.
func (EventEvidence) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("event_id"),
		index.Fields("revision_id"),
	}
}
