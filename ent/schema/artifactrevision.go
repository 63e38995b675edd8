package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ArtifactRevision holds the schema definition for the ArtifactRevision entity.
// An immutable, content-hash-identified snapshot of an ingested artifact.
type ArtifactRevision struct {
	ent.Schema
}

// Fields of the ArtifactRevision.
func (ArtifactRevision) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("revision_id").
			Unique().
			Immutable().
			Comment("content-hash-derived revision identifier"),
		field.String("artifact_uid").
			Immutable().
			Comment("stable identity across revisions, e.g. art_xxxxxxxx"),
		field.String("artifact_id").
			Immutable().
			Comment("vector-store ID shared by content/chunks for this revision"),
		field.Enum("artifact_type").
			Values("email", "doc", "chat", "transcript", "note").
			Immutable(),
		field.String("content_hash").
			Immutable(),
		field.Text("content").
			Immutable().
			Comment("full artifact text, retained for re-chunk/re-embed and fallback recall"),
		// content_embedding (vector) is added out-of-band via a raw-SQL
		// migration (pkg/database/migrations.go) since ent has no native
		// pgvector field type; it backs the "content" vector-index
		// collection (pkg/vectorindex).
		field.Int("token_count").
			Immutable(),
		field.Bool("is_chunked").
			Immutable(),
		field.Int("chunk_count").
			Default(0).
			Immutable(),
		field.Bool("is_latest").
			Default(true),

		// Privacy tags (carried, not enforced — see spec Non-goals).
		field.Enum("sensitivity").
			Values("normal", "sensitive", "highly_sensitive").
			Default("normal").
			Immutable(),
		field.Enum("visibility_scope").
			Values("me", "team", "org", "custom").
			Default("team").
			Immutable(),
		field.Enum("retention_policy").
			Values("forever", "1y", "until_resolved", "custom").
			Default("forever").
			Immutable(),

		// Provenance.
		field.String("source").
			Immutable().
			Comment("context tag, e.g. meeting, email, conversation"),
		field.String("source_system").
			Optional().
			Nillable().
			Immutable(),
		field.String("source_id").
			Optional().
			Nillable().
			Immutable(),
		field.String("source_url").
			Optional().
			Nillable().
			Immutable(),
		field.String("title").
			Optional().
			Nillable().
			Immutable(),
		field.String("author").
			Optional().
			Nillable().
			Immutable(),
		field.Strings("participants").
			Optional().
			Immutable(),
		field.Time("document_date").
			Optional().
			Nillable().
			Immutable(),
		field.String("document_status").
			Optional().
			Nillable().
			Immutable(),
		field.Float("importance").
			Default(0.5).
			Immutable(),

		// Conversation-mode fields.
		field.String("conversation_id").
			Optional().
			Nillable().
			Immutable(),
		field.Int("turn_index").
			Optional().
			Nillable().
			Immutable(),
		field.String("role").
			Optional().
			Nillable().
			Immutable(),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the ArtifactRevision.
func (ArtifactRevision) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("chunks", Chunk.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the ArtifactRevision.
func (ArtifactRevision) Indexes() []ent.Index {
	return []ent.Index{
		// At most one in-flight query path per (artifact_uid, content_hash); the
		// application enforces "at most one is_latest" via transaction, not a DB
		// constraint, because historical (non-latest) revisions legitimately share
		// artifact_uid.
		index.Fields("artifact_uid", "content_hash").
			Unique(),
		index.Fields("artifact_uid", "is_latest"),
		index.Fields("conversation_id", "turn_index"),
		index.Fields("created_at"),
	}
}

// Annotations for PostgreSQL-specific features.
func (ArtifactRevision) Annotations() []schema.Annotation {
	return []schema.Annotation{}
}
