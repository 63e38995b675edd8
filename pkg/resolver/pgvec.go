package resolver

import pgv "github.com/pgvector/pgvector-go"

// pgVector adapts a []float32 to pgvector's wire-format Valuer for use as a
// raw-SQL query argument against the context_embedding column.
func pgVector(v []float32) pgv.Vector {
	return pgv.NewVector(v)
}
