package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EventJob holds the schema definition for the EventJob entity.
// A queue row driving asynchronous extraction/materialization work.
type EventJob struct {
	ent.Schema
}

// Fields of the EventJob.
func (EventJob) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("job_id").
			Unique().
			Immutable(),
		field.String("artifact_uid").
			Immutable(),
		field.String("revision_id").
			Immutable(),
		field.Enum("job_type").
			Values("extract_events", "graph_upsert").
			Immutable(),
		field.Enum("status").
			Values("PENDING", "PROCESSING", "DONE", "FAILED").
			Default("PENDING"),
		field.Int("attempts").
			Default(0),
		field.Int("max_attempts").
			Default(5),
		field.Time("next_run_at").
			Default(time.Now),
		field.Time("locked_at").
			Optional().
			Nillable(),
		field.String("locked_by").
			Optional().
			Nillable(),
		field.String("last_error_code").
			Optional().
			Nillable(),
		field.String("last_error_message").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Indexes of the EventJob.
func (EventJob) Indexes() []ent.Index {
	return []ent.Index{
		// at-most-once-per-(artifact,revision,type)
		index.Fields("artifact_uid", "revision_id", "job_type").
			Unique(),
		index.Fields("status", "job_type", "next_run_at"),
		index.Fields("status", "job_type", "created_at"),
	}
}
