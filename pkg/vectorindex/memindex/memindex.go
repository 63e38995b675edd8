// Package memindex is an in-memory vectorindex.Index for tests, standing in
// for a real vector store (or the pgvector-backed implementation) without
// requiring a database connection.
package memindex

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/hybridmem/memstore/pkg/vectorindex"
)

type entry struct {
	vector   []float32
	metadata map[string]any
}

// Index is a goroutine-safe, in-memory vectorindex.Index.
type Index struct {
	mu   sync.Mutex
	data map[vectorindex.Collection]map[string]entry
}

// New returns an empty Index.
func New() *Index {
	return &Index{data: make(map[vectorindex.Collection]map[string]entry)}
}

func (idx *Index) Upsert(ctx context.Context, collection vectorindex.Collection, id string, vector []float32, metadata map[string]any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.data[collection] == nil {
		idx.data[collection] = make(map[string]entry)
	}
	idx.data[collection][id] = entry{vector: vector, metadata: metadata}
	return nil
}

func (idx *Index) Delete(ctx context.Context, collection vectorindex.Collection, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.data[collection], id)
	return nil
}

func (idx *Index) Query(ctx context.Context, collection vectorindex.Collection, vector []float32, topK int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var matches []vectorindex.Match
	for id, e := range idx.data[collection] {
		if !passesFilter(e.metadata, filter) {
			continue
		}
		matches = append(matches, vectorindex.Match{
			ID:       id,
			Distance: cosineDistance(vector, e.vector),
			Metadata: e.metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func passesFilter(metadata map[string]any, filter vectorindex.Filter) bool {
	if len(filter.Context) > 0 {
		if !containsStr(filter.Context, stringField(metadata, "context")) {
			return false
		}
	}
	if len(filter.Source) > 0 {
		if !containsStr(filter.Source, stringField(metadata, "source")) {
			return false
		}
	}
	if len(filter.Sensitivity) > 0 {
		if !containsStr(filter.Sensitivity, stringField(metadata, "sensitivity")) {
			return false
		}
	}
	if filter.DateFrom != nil || filter.DateTo != nil {
		date, ok := metadata["document_date"].(time.Time)
		if !ok {
			return false
		}
		if filter.DateFrom != nil && date.Before(*filter.DateFrom) {
			return false
		}
		if filter.DateTo != nil && date.After(*filter.DateTo) {
			return false
		}
	}
	if filter.MinImportance != nil {
		imp, _ := metadata["importance"].(float64)
		if imp < *filter.MinImportance {
			return false
		}
	}
	return true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - sim
}
