package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EventSubject holds the schema definition for the EventSubject entity — a
// normalized event-to-entity link for entities an event is about (as
// opposed to entities that acted in it).
type EventSubject struct {
	ent.Schema
}

// Fields of the EventSubject.
func (EventSubject) Fields() []ent.Field {
	return []ent.Field{
		field.String("event_id").
			Immutable(),
		field.String("entity_id").
			Immutable(),
	}
}

// Edges of the EventSubject.
func (EventSubject) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("event", SemanticEvent.Type).
			Ref("subjects").
			Field("event_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EventSubject.
func (EventSubject) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("event_id", "entity_id").
			Unique(),
		index.Fields("entity_id"),
	}
}
