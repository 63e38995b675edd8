package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hybridmem/memstore/pkg/config"
	"github.com/hybridmem/memstore/pkg/memory"
	"github.com/hybridmem/memstore/pkg/vectorindex"
)

func TestRRFFuse_SumsAcrossCollections(t *testing.T) {
	byCollection := map[vectorindex.Collection][]vectorindex.Match{
		vectorindex.CollectionContent: {{ID: "a"}, {ID: "b"}},
		vectorindex.CollectionChunks:  {{ID: "b"}, {ID: "c"}},
	}
	scores := rrfFuse(byCollection, 60)

	assert.InDelta(t, 1.0/61, scores["a"], 1e-9)
	assert.InDelta(t, 1.0/62+1.0/61, scores["b"], 1e-9)
	assert.InDelta(t, 1.0/62, scores["c"], 1e-9)
}

func TestDedupePreferChunks_DropsArtifactWhenChunkPresent(t *testing.T) {
	hits := []hit{
		{ID: "rev-1", Kind: "artifact", RevisionID: "rev-1", Score: 0.2},
		{ID: "rev-1::chunk::000", Kind: "chunk", RevisionID: "rev-1", Score: 0.3},
		{ID: "rev-2", Kind: "artifact", RevisionID: "rev-2", Score: 0.1},
	}
	out := dedupePreferChunks(hits)

	var ids []string
	for _, h := range out {
		ids = append(ids, h.ID)
	}
	assert.ElementsMatch(t, []string{"rev-1::chunk::000", "rev-2"}, ids)
}

func TestIDPrefix(t *testing.T) {
	assert.Equal(t, "art_", idPrefix("art_abc123"))
	assert.Equal(t, "evt_", idPrefix("evt_abc123"))
	assert.Equal(t, "", idPrefix("abc123"))
}

func intPtr(v int) *int { return &v }

func TestGraphBudget_DefaultsWhenOmittedAndHonorsExplicitZero(t *testing.T) {
	cfg := config.DefaultRetrievalConfig()
	assert.Equal(t, cfg.GraphBudgetDefault, graphBudget(memory.RecallRequest{}, cfg))
	assert.Equal(t, 0, graphBudget(memory.RecallRequest{GraphBudget: intPtr(0)}, cfg))
	assert.Equal(t, 5, graphBudget(memory.RecallRequest{GraphBudget: intPtr(5)}, cfg))
}

func TestRecall_RejectsGraphBudgetOverMax(t *testing.T) {
	cfg := config.DefaultRetrievalConfig()
	r := &Retriever{cfg: cfg}
	_, err := r.Recall(nil, memory.RecallRequest{Query: "hello world", GraphBudget: intPtr(cfg.GraphBudgetMax + 1)})
	var ve *memory.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "graph_budget", ve.Field)
}

func TestGraphSeedLimit_ClampsToConfiguredMax(t *testing.T) {
	cfg := config.DefaultRetrievalConfig()
	assert.Equal(t, cfg.GraphSeedLimitDefault, graphSeedLimit(memory.RecallRequest{}, cfg))
	assert.Equal(t, cfg.GraphSeedLimitMax, graphSeedLimit(memory.RecallRequest{GraphSeedLimit: cfg.GraphSeedLimitMax + 5}, cfg))
}

func TestGraphFilters_FallsBackToConfigDefault(t *testing.T) {
	cfg := config.DefaultRetrievalConfig()
	assert.Equal(t, cfg.DefaultGraphFilters, graphFilters(memory.RecallRequest{}, cfg))
	assert.Equal(t, []string{"Feedback"}, graphFilters(memory.RecallRequest{GraphFilters: []string{"Feedback"}}, cfg))
}
