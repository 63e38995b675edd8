package retriever

import (
	"context"
	"sort"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/artifactrevision"
	"github.com/hybridmem/memstore/ent/semanticevent"
	"github.com/hybridmem/memstore/pkg/memory"
)

// directLookup implements spec.md §4.8 step 1: an `art_`-prefixed id
// returns the latest revision of that artifact; an `evt_`-prefixed id
// returns the event row plus the entities it links to.
func (r *Retriever) directLookup(ctx context.Context, id string) (memory.RecallResponse, error) {
	switch idPrefix(id) {
	case "art_":
		rev, err := r.client.ArtifactRevision.Query().
			Where(artifactrevision.ArtifactUIDEQ(id), artifactrevision.IsLatestEQ(true)).
			Only(ctx)
		if err != nil {
			if ent.IsNotFound(err) {
				return memory.RecallResponse{}, &memory.NotFoundError{ID: id}
			}
			return memory.RecallResponse{}, &memory.StoreError{Op: "direct_lookup_artifact", Err: err}
		}
		return memory.RecallResponse{
			PrimaryResults: []memory.RecallResult{{
				ID: id, Kind: "artifact", Score: 1, Text: rev.Content, Metadata: artifactMetadata(rev),
			}},
		}, nil

	case "evt_":
		ev, err := r.client.SemanticEvent.Query().Where(semanticevent.IDEQ(id)).Only(ctx)
		if err != nil {
			if ent.IsNotFound(err) {
				return memory.RecallResponse{}, &memory.NotFoundError{ID: id}
			}
			return memory.RecallResponse{}, &memory.StoreError{Op: "direct_lookup_event", Err: err}
		}
		entities, err := r.entitiesForEvents(ctx, []string{ev.ID})
		if err != nil {
			r.logger.Warn("retriever: direct event lookup entity hydrate failed", "event_id", ev.ID, "error", err)
		}
		return memory.RecallResponse{
			PrimaryResults: []memory.RecallResult{{
				ID: ev.ID, Kind: "event", Score: 1, Text: ev.Narrative,
				Metadata: map[string]any{"category": ev.Category, "confidence": ev.Confidence, "event_time": ev.EventTime},
			}},
			Entities: entities,
		}, nil

	default:
		return memory.RecallResponse{}, memory.NewValidationError("id", "must start with art_ or evt_")
	}
}

// RecallConversation serves conversation-history mode: a raw, turn-ordered
// listing instead of a semantic search, used when the caller supplies
// conversation_id and wants history rather than retrieval.
func (r *Retriever) RecallConversation(ctx context.Context, conversationID string) (memory.ConversationHistoryResponse, error) {
	revs, err := r.client.ArtifactRevision.Query().
		Where(artifactrevision.ConversationIDEQ(conversationID), artifactrevision.IsLatestEQ(true)).
		All(ctx)
	if err != nil {
		return memory.ConversationHistoryResponse{}, &memory.StoreError{Op: "query_conversation", Err: err}
	}

	turnOf := func(rev *ent.ArtifactRevision) int {
		if rev.TurnIndex != nil {
			return *rev.TurnIndex
		}
		return 0
	}
	sort.SliceStable(revs, func(i, j int) bool { return turnOf(revs[i]) < turnOf(revs[j]) })

	turns := make([]memory.ConversationTurn, len(revs))
	for i, rev := range revs {
		role := ""
		if rev.Role != nil {
			role = *rev.Role
		}
		turns[i] = memory.ConversationTurn{
			TurnIndex: turnOf(rev),
			Role:      role,
			Content:   rev.Content,
			CreatedAt: rev.CreatedAt,
		}
	}
	return memory.ConversationHistoryResponse{Turns: turns, TotalTurns: len(turns), ConversationID: conversationID}, nil
}
