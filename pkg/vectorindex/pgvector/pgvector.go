// Package pgvector implements vectorindex.Index on top of the same
// Postgres database the relational store uses, via pgvector columns added
// in pkg/database/migrations.go (content_embedding on artifact_revisions,
// embedding on chunks). Metadata filtering is expressed as SQL predicates
// against the relational columns already present on those tables, since
// the "vector store" and "relational store" are, for this deployment,
// the same database.
package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	pgv "github.com/pgvector/pgvector-go"

	"github.com/hybridmem/memstore/pkg/vectorindex"
)

// Index implements vectorindex.Index over db.
type Index struct {
	db *sql.DB
}

// New wraps db as a vectorindex.Index.
func New(db *sql.DB) *Index {
	return &Index{db: db}
}

func tableFor(c vectorindex.Collection) (table, idCol, vecCol string, err error) {
	switch c {
	case vectorindex.CollectionContent:
		return "artifact_revisions", "revision_id", "content_embedding", nil
	case vectorindex.CollectionChunks:
		return "chunks", "chunk_id", "embedding", nil
	default:
		return "", "", "", fmt.Errorf("vectorindex: unknown collection %q", c)
	}
}

// Upsert sets the embedding column for the row identified by id. Metadata
// is not written here: it already lives on the same relational row
// (sensitivity, source, document_date, importance, …) written
// transactionally by the ingester.
func (i *Index) Upsert(ctx context.Context, collection vectorindex.Collection, id string, vector []float32, metadata map[string]any) error {
	table, idCol, vecCol, err := tableFor(collection)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`, table, vecCol, idCol)
	res, err := i.db.ExecContext(ctx, query, pgv.NewVector(vector), id)
	if err != nil {
		return fmt.Errorf("vectorindex: upsert %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("vectorindex: upsert %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("vectorindex: upsert %s/%s: no matching row", collection, id)
	}
	return nil
}

// Delete clears the embedding column for id, removing it from future
// nearest-neighbor queries. The relational row itself is owned by the
// ingester's cascade-delete path, not by this package.
func (i *Index) Delete(ctx context.Context, collection vectorindex.Collection, id string) error {
	table, idCol, vecCol, err := tableFor(collection)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = NULL WHERE %s = $1`, table, vecCol, idCol)
	_, err = i.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("vectorindex: delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// queryTarget describes where Query reads its id/vector/metadata columns
// from for one collection. The chunks collection carries none of the
// filterable metadata itself (ent/schema/chunk.go has no source,
// sensitivity, document_date, or importance columns) — that metadata lives
// on the owning artifact_revisions row, so chunk queries join to it.
func queryTarget(c vectorindex.Collection) (from, idExpr, vecExpr, metaPrefix string, err error) {
	switch c {
	case vectorindex.CollectionContent:
		return "artifact_revisions r", "r.revision_id", "r.content_embedding", "r.", nil
	case vectorindex.CollectionChunks:
		return "chunks c JOIN artifact_revisions r ON c.revision_id = r.revision_id",
			"c.chunk_id", "c.embedding", "r.", nil
	default:
		return "", "", "", "", fmt.Errorf("vectorindex: unknown collection %q", c)
	}
}

// Query performs a k-NN search ordered by ascending cosine distance,
// narrowed by filter.
func (i *Index) Query(ctx context.Context, collection vectorindex.Collection, vector []float32, topK int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	from, idExpr, vecExpr, metaPrefix, err := queryTarget(collection)
	if err != nil {
		return nil, err
	}

	var conds []string
	args := []any{pgv.NewVector(vector)}
	conds = append(conds, fmt.Sprintf("%s IS NOT NULL", vecExpr))

	addIn := func(col string, vals []string) {
		if len(vals) == 0 {
			return
		}
		placeholders := make([]string, len(vals))
		for j, v := range vals {
			args = append(args, v)
			placeholders[j] = fmt.Sprintf("$%d", len(args))
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ",")))
	}
	// source holds the context tag (e.g. "meeting", "email") the ingester
	// writes from RememberRequest.Context; source_system holds the
	// external system identity from RememberRequest.Source. See
	// pkg/ingester.writePhaseB's SetSource/SetSourceSystem calls.
	addIn(metaPrefix+"source", filter.Context)
	addIn(metaPrefix+"source_system", filter.Source)
	addIn(metaPrefix+"sensitivity", filter.Sensitivity)

	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conds = append(conds, fmt.Sprintf("%sdocument_date >= $%d", metaPrefix, len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conds = append(conds, fmt.Sprintf("%sdocument_date <= $%d", metaPrefix, len(args)))
	}
	if filter.MinImportance != nil {
		args = append(args, *filter.MinImportance)
		conds = append(conds, fmt.Sprintf("%simportance >= $%d", metaPrefix, len(args)))
	}

	query := fmt.Sprintf(
		`SELECT %s, %s <=> $1 AS distance FROM %s WHERE %s ORDER BY distance ASC LIMIT %d`,
		idExpr, vecExpr, from, strings.Join(conds, " AND "), topK,
	)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: query %s: %w", collection, err)
	}
	defer rows.Close()

	var matches []vectorindex.Match
	for rows.Next() {
		var m vectorindex.Match
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			return nil, fmt.Errorf("vectorindex: scan %s: %w", collection, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorindex: query %s: %w", collection, err)
	}
	return matches, nil
}
