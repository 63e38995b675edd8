package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EventActor holds the schema definition for the EventActor entity — a
// normalized event-to-entity link with the actor's role in the event.
type EventActor struct {
	ent.Schema
}

// Fields of the EventActor.
func (EventActor) Fields() []ent.Field {
	return []ent.Field{
		field.String("event_id").
			Immutable(),
		field.String("entity_id").
			Immutable(),
		field.String("role").
			Optional().
			Nillable(),
	}
}

// Edges of the EventActor.
func (EventActor) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("event", SemanticEvent.Type).
			Ref("actors").
			Field("event_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the EventActor.
func (EventActor) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("event_id", "entity_id").
			Unique(),
		index.Fields("entity_id"),
	}
}
