// Package vectorindex defines the vector-index capability the ingester and
// retriever depend on, and a concrete implementation projecting the
// "content" and "chunks" collections onto the same Postgres instance via
// pgvector columns on artifact_revisions/chunks, rather than standing up a
// dedicated vector-store deployment. The interface is kept separate from
// pkg/database so a future swap to a dedicated vector store (Qdrant,
// Pinecone — both present elsewhere in this codebase's surrounding
// ecosystem) only requires a new implementation of Index.
package vectorindex

import (
	"context"
	"time"
)

// Collection names the two logical vector-index collections the spec
// describes.
type Collection string

const (
	CollectionContent Collection = "content"
	CollectionChunks  Collection = "chunks"
)

// Filter narrows a Query by the metadata fields carried alongside each
// vector, mirroring the per-collection metadata the ingester writes.
type Filter struct {
	Context      []string
	Source       []string
	Sensitivity  []string
	DateFrom     *time.Time
	DateTo       *time.Time
	MinImportance *float64
}

// Match is one nearest-neighbor hit.
type Match struct {
	ID       string
	Distance float64 // cosine distance, lower is closer
	Metadata map[string]any
}

// Index is the capability the ingester writes through and the retriever
// reads through. Implementations own cascade-delete semantics: deleting an
// artifact's vectors is always driven by the Ingester's cascade path, never
// by a bare vector-store call from another component.
type Index interface {
	// Upsert writes or replaces the vector and metadata for id within collection.
	Upsert(ctx context.Context, collection Collection, id string, vector []float32, metadata map[string]any) error
	// Delete removes id from collection. Deleting a nonexistent id is not an error.
	Delete(ctx context.Context, collection Collection, id string) error
	// Query returns up to topK nearest neighbors to vector within collection,
	// narrowed by filter, ordered by ascending distance.
	Query(ctx context.Context, collection Collection, vector []float32, topK int, filter Filter) ([]Match, error)
}
