package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// entityEmbeddingDims is the vector width shared by every pgvector column
// (Entity.context_embedding, ArtifactRevision.content_embedding,
// Chunk.embedding). It must match config.EmbeddingConfig.Dims; hard-coded
// here because the pgvector column type is fixed at migration time, not
// per-process.
const entityEmbeddingDims = 3072

// CreateGINIndexes creates full-text search GIN indexes and the pgvector
// extension/column/index needed by components ent's schema DSL cannot
// express directly (full-text search predicates, vector columns). Run once
// after ent-managed migrations, mirroring the teacher's post-migration
// custom-SQL hook.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	// Full-text search over artifact content, for a fallback keyword path
	// alongside the vector index (out of scope per spec, kept available
	// for direct-ID lookups and debugging).
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_artifact_revisions_content_gin
		ON artifact_revisions USING gin(to_tsvector('english', content))`); err != nil {
		return fmt.Errorf("failed to create content GIN index: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		fmt.Sprintf(`ALTER TABLE entities ADD COLUMN IF NOT EXISTS context_embedding vector(%d)`, entityEmbeddingDims)); err != nil {
		return fmt.Errorf("failed to add context_embedding column: %w", err)
	}

	// IVFFlat is adequate at the entity-registry scale this system targets
	// (spec non-goals exclude million-entity graphs); cosine distance
	// matches the resolver's candidate-search metric.
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_entities_context_embedding
		ON entities USING ivfflat (context_embedding vector_cosine_ops) WITH (lists = 100)`); err != nil {
		return fmt.Errorf("failed to create context_embedding index: %w", err)
	}

	// The "content" and "chunks" vector-index collections are projected
	// onto the same Postgres instance via pgvector rather than a separate
	// vector-store deployment (see pkg/vectorindex); each gets its own
	// embedding column and ANN index alongside the relational row it
	// belongs to.
	if _, err := db.ExecContext(ctx,
		fmt.Sprintf(`ALTER TABLE artifact_revisions ADD COLUMN IF NOT EXISTS content_embedding vector(%d)`, entityEmbeddingDims)); err != nil {
		return fmt.Errorf("failed to add content_embedding column: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_artifact_revisions_content_embedding
		ON artifact_revisions USING ivfflat (content_embedding vector_cosine_ops) WITH (lists = 100)`); err != nil {
		return fmt.Errorf("failed to create content_embedding index: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		fmt.Sprintf(`ALTER TABLE chunks ADD COLUMN IF NOT EXISTS embedding vector(%d)`, entityEmbeddingDims)); err != nil {
		return fmt.Errorf("failed to add chunk embedding column: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding
		ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`); err != nil {
		return fmt.Errorf("failed to create chunk embedding index: %w", err)
	}

	return nil
}
