package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Chunk holds the schema definition for the Chunk entity.
// Derived, deterministic from artifact text and chunker parameters.
type Chunk struct {
	ent.Schema
}

// Fields of the Chunk.
func (Chunk) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("chunk_id").
			Unique().
			Immutable().
			Comment("{artifact_id}::chunk::{index:03d}::{content_hash_prefix}"),
		field.String("revision_id").
			Immutable(),
		field.String("artifact_id").
			Immutable(),
		field.Int("index").
			Immutable().
			Comment("monotonic from 0"),
		field.Int("start_char").
			Immutable(),
		field.Int("end_char").
			Immutable(),
		field.Int("token_count").
			Immutable(),
		field.String("content_hash").
			Immutable(),
		field.Text("text").
			Immutable(),
		// embedding (vector) is added out-of-band via a raw-SQL migration
		// (pkg/database/migrations.go); it backs the "chunks" vector-index
		// collection (pkg/vectorindex).
	}
}

// Edges of the Chunk.
func (Chunk) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("revision", ArtifactRevision.Type).
			Ref("chunks").
			Field("revision_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the Chunk.
func (Chunk) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("revision_id", "index").
			Unique(),
		index.Fields("artifact_id"),
	}
}
