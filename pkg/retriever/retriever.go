// Package retriever implements the recall read path: query embedding,
// per-collection k-NN search, reciprocal-rank fusion, chunk/artifact
// dedup, neighbor expansion, event enrichment, and one-hop graph
// expansion, per spec.md §4.8. Grounded on the teacher's
// pkg/services/timeline_service.go "fetch primary rows then enrich from a
// secondary table" shape and the k-NN/distance-cutoff conventions in the
// pack's other embedding-search example.
package retriever

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/artifactrevision"
	"github.com/hybridmem/memstore/ent/chunk"
	"github.com/hybridmem/memstore/pkg/config"
	"github.com/hybridmem/memstore/pkg/embedder"
	"github.com/hybridmem/memstore/pkg/graph"
	"github.com/hybridmem/memstore/pkg/memory"
	"github.com/hybridmem/memstore/pkg/vectorindex"
)

// Retriever is the recall-path orchestrator.
type Retriever struct {
	client   *ent.Client
	vindex   vectorindex.Index
	embed    *embedder.Client
	expander *graph.Expander
	cfg      *config.RetrievalConfig
	logger   *slog.Logger
}

// New constructs a Retriever.
func New(client *ent.Client, vindex vectorindex.Index, embed *embedder.Client, expander *graph.Expander, cfg *config.RetrievalConfig) *Retriever {
	if client == nil {
		panic("retriever: client must not be nil")
	}
	if vindex == nil {
		panic("retriever: vindex must not be nil")
	}
	if embed == nil {
		panic("retriever: embed must not be nil")
	}
	return &Retriever{client: client, vindex: vindex, embed: embed, expander: expander, cfg: cfg, logger: slog.Default()}
}

const (
	minQueryChars = 2
	maxQueryChars = 5000
	defaultLimit  = 10
)

// Recall implements spec.md §4.8 steps 1-9 for the semantic-search path.
// Conversation-history mode (raw turn listing) is served by
// RecallConversation instead.
func (r *Retriever) Recall(ctx context.Context, req memory.RecallRequest) (memory.RecallResponse, error) {
	if req.ID != "" {
		return r.directLookup(ctx, req.ID)
	}

	n := len(req.Query)
	if n < minQueryChars || n > maxQueryChars {
		return memory.RecallResponse{}, memory.NewValidationError("query", "must be between 2 and 5000 characters")
	}

	if req.GraphBudget != nil && *req.GraphBudget > r.cfg.GraphBudgetMax {
		return memory.RecallResponse{}, memory.NewValidationError("graph_budget", "exceeds configured maximum")
	}
	if req.GraphSeedLimit > r.cfg.GraphSeedLimitMax {
		return memory.RecallResponse{}, memory.NewValidationError("graph_seed_limit", "exceeds configured maximum")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	vec, err := r.embed.Embed(ctx, req.Query)
	if err != nil {
		return memory.RecallResponse{}, &memory.EmbeddingError{Err: err}
	}

	filter := buildFilter(req)
	byCollection, err := r.search(ctx, vec, filter, limit)
	if err != nil {
		return memory.RecallResponse{}, &memory.StoreError{Op: "vector_query", Err: err}
	}

	scores := rrfFuse(byCollection, r.cfg.RRFK)
	results, err := r.hydrate(ctx, byCollection, scores)
	if err != nil {
		return memory.RecallResponse{}, &memory.StoreError{Op: "hydrate_hits", Err: err}
	}
	results = dedupePreferChunks(results)
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}

	if req.ExpandNeighbors {
		neighbors, err := r.neighborChunks(ctx, results)
		if err != nil {
			r.logger.Warn("retriever: neighbor expansion failed", "error", err)
		} else {
			results = append(results, neighbors...)
		}
	}

	primary := make([]memory.RecallResult, len(results))
	for i, h := range results {
		primary[i] = h.toRecallResult()
	}

	var events []*ent.SemanticEvent
	if req.IncludeEvents || req.Expand {
		events, err = r.enrichEvents(ctx, results, req)
		if err != nil {
			r.logger.Warn("retriever: event enrichment failed", "error", err)
			events = nil
		}
	}

	related, entities, degraded := r.expandGraph(ctx, events, req)

	return memory.RecallResponse{
		PrimaryResults: primary,
		RelatedContext: related,
		Entities:       entities,
		ExpandOptions: memory.ExpandOptions{
			GraphBudget:    graphBudget(req, r.cfg),
			GraphFilters:   graphFilters(req, r.cfg),
			GraphSeedLimit: graphSeedLimit(req, r.cfg),
			GraphDegraded:  degraded,
		},
	}, nil
}

func buildFilter(req memory.RecallRequest) vectorindex.Filter {
	f := vectorindex.Filter{
		DateFrom:      req.DateFrom,
		DateTo:        req.DateTo,
		MinImportance: req.MinImportance,
	}
	if req.Context != "" {
		f.Context = []string{req.Context}
	}
	if req.Source != "" {
		f.Source = []string{req.Source}
	}
	if req.Sensitivity != "" {
		f.Sensitivity = []string{req.Sensitivity}
	}
	return f
}

func (r *Retriever) search(ctx context.Context, vec []float32, filter vectorindex.Filter, limit int) (map[vectorindex.Collection][]vectorindex.Match, error) {
	topK := limit * 2
	out := make(map[vectorindex.Collection][]vectorindex.Match, 2)
	for _, coll := range []vectorindex.Collection{vectorindex.CollectionContent, vectorindex.CollectionChunks} {
		matches, err := r.vindex.Query(ctx, coll, vec, topK, filter)
		if err != nil {
			return nil, err
		}
		kept := matches[:0]
		for _, m := range matches {
			if m.Distance <= r.cfg.MaxDistance {
				kept = append(kept, m)
			}
		}
		out[coll] = kept
	}
	return out, nil
}

// rrfFuse implements reciprocal rank fusion: 1/(k+r+1) per (collection,
// rank) pair, summed across collections (spec.md §4.8 step 4).
func rrfFuse(byCollection map[vectorindex.Collection][]vectorindex.Match, k int) map[string]float64 {
	scores := make(map[string]float64)
	for _, matches := range byCollection {
		for rank, m := range matches {
			scores[m.ID] += 1.0 / float64(k+rank+1)
		}
	}
	return scores
}

// hit is one fused candidate, hydrated from the relational store.
type hit struct {
	ID         string
	Kind       string // "artifact" or "chunk"
	RevisionID string // underlying revision this hit belongs to
	Index      int    // chunk index; -1 for artifact-level hits
	Text       string
	Metadata   map[string]any
	Score      float64
	IsNeighbor bool
}

func (h hit) toRecallResult() memory.RecallResult {
	return memory.RecallResult{
		ID:         h.ID,
		Kind:       h.Kind,
		Score:      h.Score,
		Text:       h.Text,
		Metadata:   h.Metadata,
		IsNeighbor: h.IsNeighbor,
	}
}

func (r *Retriever) hydrate(ctx context.Context, byCollection map[vectorindex.Collection][]vectorindex.Match, scores map[string]float64) ([]hit, error) {
	var revisionIDs, chunkIDs []string
	for _, m := range byCollection[vectorindex.CollectionContent] {
		revisionIDs = append(revisionIDs, m.ID)
	}
	for _, m := range byCollection[vectorindex.CollectionChunks] {
		chunkIDs = append(chunkIDs, m.ID)
	}

	var hits []hit
	if len(revisionIDs) > 0 {
		revs, err := r.client.ArtifactRevision.Query().Where(artifactrevision.IDIn(revisionIDs...)).All(ctx)
		if err != nil {
			return nil, err
		}
		for _, rev := range revs {
			hits = append(hits, hit{
				ID:         rev.ID,
				Kind:       "artifact",
				RevisionID: rev.ID,
				Index:      -1,
				Text:       rev.Content,
				Metadata:   artifactMetadata(rev),
				Score:      scores[rev.ID],
			})
		}
	}
	if len(chunkIDs) > 0 {
		chunks, err := r.client.Chunk.Query().Where(chunk.IDIn(chunkIDs...)).All(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			hits = append(hits, hit{
				ID:         c.ID,
				Kind:       "chunk",
				RevisionID: c.RevisionID,
				Index:      c.Index,
				Text:       c.Text,
				Metadata:   map[string]any{"revision_id": c.RevisionID, "chunk_index": c.Index},
				Score:      scores[c.ID],
			})
		}
	}
	return hits, nil
}

func artifactMetadata(rev *ent.ArtifactRevision) map[string]any {
	m := map[string]any{
		"artifact_type": rev.ArtifactType,
		"is_chunked":    rev.IsChunked,
		"chunk_count":   rev.ChunkCount,
		"sensitivity":   rev.Sensitivity,
		"source":        rev.Source,
	}
	if rev.Title != nil {
		m["title"] = *rev.Title
	}
	return m
}

// dedupePreferChunks drops an artifact-level hit when a chunk hit from the
// same revision is also present, keeping the finer-granularity hit (spec.md
// §4.8 step 5).
func dedupePreferChunks(hits []hit) []hit {
	chunkRevisions := make(map[string]struct{})
	for _, h := range hits {
		if h.Kind == "chunk" {
			chunkRevisions[h.RevisionID] = struct{}{}
		}
	}
	out := hits[:0]
	for _, h := range hits {
		if h.Kind == "artifact" {
			if _, dropped := chunkRevisions[h.RevisionID]; dropped {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

func (r *Retriever) neighborChunks(ctx context.Context, hits []hit) ([]hit, error) {
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		seen[h.ID] = struct{}{}
	}

	var out []hit
	for _, h := range hits {
		if h.Kind != "chunk" {
			continue
		}
		for _, idx := range []int{h.Index - 1, h.Index + 1} {
			if idx < 0 {
				continue
			}
			c, err := r.client.Chunk.Query().
				Where(chunk.RevisionIDEQ(h.RevisionID), chunk.IndexEQ(idx)).
				Only(ctx)
			if err != nil {
				if ent.IsNotFound(err) {
					continue
				}
				return nil, err
			}
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, hit{
				ID:         c.ID,
				Kind:       "chunk",
				RevisionID: c.RevisionID,
				Index:      c.Index,
				Text:       c.Text,
				Metadata:   map[string]any{"revision_id": c.RevisionID, "chunk_index": c.Index},
				IsNeighbor: true,
			})
		}
	}
	return out, nil
}

func graphFilters(req memory.RecallRequest, cfg *config.RetrievalConfig) []string {
	if len(req.GraphFilters) > 0 {
		return req.GraphFilters
	}
	if len(cfg.DefaultGraphFilters) > 0 {
		return cfg.DefaultGraphFilters
	}
	return memory.DefaultGraphFilters
}

// graphBudget applies the default when the caller omits graph_budget.
// Values over cfg.GraphBudgetMax are rejected with a ValidationError before
// this is reached (spec.md §8 boundary behaviors); an explicit 0 is a valid
// request for no expansion, distinguished from "omitted" via the pointer.
func graphBudget(req memory.RecallRequest, cfg *config.RetrievalConfig) int {
	if req.GraphBudget == nil {
		return cfg.GraphBudgetDefault
	}
	return *req.GraphBudget
}

// graphSeedLimit applies the default when the caller omits graph_seed_limit.
// Over-max values are rejected upstream, mirroring graphBudget; any value
// that still reaches here is capped at cfg.GraphSeedLimitMax.
func graphSeedLimit(req memory.RecallRequest, cfg *config.RetrievalConfig) int {
	if req.GraphSeedLimit <= 0 {
		return cfg.GraphSeedLimitDefault
	}
	if req.GraphSeedLimit > cfg.GraphSeedLimitMax {
		return cfg.GraphSeedLimitMax
	}
	return req.GraphSeedLimit
}

// idPrefix reports the conventional ID kind for direct lookup (spec.md §6):
// "art_" for artifacts, "evt_" for events.
func idPrefix(id string) string {
	switch {
	case strings.HasPrefix(id, "art_"):
		return "art_"
	case strings.HasPrefix(id, "evt_"):
		return "evt_"
	default:
		return ""
	}
}
