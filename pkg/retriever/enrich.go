package retriever

import (
	"context"
	"sort"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/entity"
	"github.com/hybridmem/memstore/ent/eventactor"
	"github.com/hybridmem/memstore/ent/eventsubject"
	"github.com/hybridmem/memstore/ent/semanticevent"
	"github.com/hybridmem/memstore/pkg/memory"
)

// enrichEvents pulls events for the revisions behind the primary result
// set, optionally filtered by graph_filters, to use as graph seeds
// (spec.md §4.8 step 7).
func (r *Retriever) enrichEvents(ctx context.Context, results []hit, req memory.RecallRequest) ([]*ent.SemanticEvent, error) {
	var revisionIDs []string
	seen := make(map[string]struct{}, len(results))
	for _, h := range results {
		if h.IsNeighbor {
			continue
		}
		if _, ok := seen[h.RevisionID]; ok {
			continue
		}
		seen[h.RevisionID] = struct{}{}
		revisionIDs = append(revisionIDs, h.RevisionID)
	}
	if len(revisionIDs) == 0 {
		return nil, nil
	}

	query := r.client.SemanticEvent.Query().Where(semanticevent.RevisionIDIn(revisionIDs...))
	if filters := graphFilters(req, r.cfg); len(filters) > 0 {
		query = query.Where(semanticevent.CategoryIn(filters...))
	}
	events, err := query.All(ctx)
	if err != nil {
		return nil, err
	}

	rank := make(map[string]int, len(revisionIDs))
	for i, id := range revisionIDs {
		rank[id] = i
	}
	sort.SliceStable(events, func(i, j int) bool { return rank[events[i].RevisionID] < rank[events[j].RevisionID] })
	return events, nil
}

// expandGraph implements spec.md §4.8 step 8, including its degradation
// rule: any expansion failure or timeout returns an empty related_context
// with a warning flag rather than failing the whole recall.
func (r *Retriever) expandGraph(ctx context.Context, events []*ent.SemanticEvent, req memory.RecallRequest) ([]memory.RelatedContextItem, []memory.EntitySummary, bool) {
	if !req.Expand || !r.cfg.GraphEnabled || r.expander == nil || len(events) == 0 {
		return nil, nil, false
	}
	if graphBudget(req, r.cfg) == 0 {
		return nil, nil, false
	}

	seedLimit := graphSeedLimit(req, r.cfg)
	seeds := make([]string, 0, seedLimit)
	for _, ev := range events {
		if len(seeds) >= seedLimit {
			break
		}
		seeds = append(seeds, ev.ID)
	}

	gctx, cancel := context.WithTimeout(ctx, r.cfg.GraphQueryTimeout)
	defer cancel()

	related, err := r.expander.Expand(gctx, seeds, graphFilters(req, r.cfg), graphBudget(req, r.cfg))
	if err != nil {
		r.logger.Warn("retriever: graph expansion degraded", "error", err)
		return nil, nil, true
	}
	if len(related) == 0 {
		return nil, nil, false
	}

	eventIDs := make([]string, len(related))
	entityIDSet := make(map[string]struct{}, len(related))
	for i, rel := range related {
		eventIDs[i] = rel.EventID
		entityIDSet[rel.EntityID] = struct{}{}
	}

	relatedEvents, err := r.client.SemanticEvent.Query().Where(semanticevent.IDIn(eventIDs...)).All(ctx)
	if err != nil {
		r.logger.Warn("retriever: graph expansion event hydrate failed", "error", err)
		return nil, nil, true
	}
	byID := make(map[string]*ent.SemanticEvent, len(relatedEvents))
	for _, ev := range relatedEvents {
		byID[ev.ID] = ev
	}

	items := make([]memory.RelatedContextItem, 0, len(related))
	for _, rel := range related {
		ev, ok := byID[rel.EventID]
		if !ok {
			continue
		}
		items = append(items, memory.RelatedContextItem{
			Event:    eventSummary(ev),
			EntityID: rel.EntityID,
			EdgeType: rel.EdgeType,
		})
	}

	entityIDs := make([]string, 0, len(entityIDSet))
	for id := range entityIDSet {
		entityIDs = append(entityIDs, id)
	}
	entities, err := r.fetchEntitySummaries(ctx, entityIDs)
	if err != nil {
		r.logger.Warn("retriever: entity summary hydrate failed", "error", err)
	}
	return items, entities, false
}

func eventSummary(ev *ent.SemanticEvent) memory.EventSummary {
	return memory.EventSummary{
		ID:         ev.ID,
		Category:   ev.Category,
		Narrative:  ev.Narrative,
		EventTime:  ev.EventTime,
		Confidence: ev.Confidence,
	}
}

func (r *Retriever) fetchEntitySummaries(ctx context.Context, entityIDs []string) ([]memory.EntitySummary, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	entities, err := r.client.Entity.Query().Where(entity.IDIn(entityIDs...)).All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]memory.EntitySummary, len(entities))
	for i, e := range entities {
		out[i] = memory.EntitySummary{ID: e.ID, EntityType: string(e.EntityType), CanonicalName: e.CanonicalName}
	}
	return out, nil
}

// entitiesForEvents collects the entities acting in or subject to the
// given events, for the evt_ direct-lookup path.
func (r *Retriever) entitiesForEvents(ctx context.Context, eventIDs []string) ([]memory.EntitySummary, error) {
	actors, err := r.client.EventActor.Query().Where(eventactor.EventIDIn(eventIDs...)).All(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := r.client.EventSubject.Query().Where(eventsubject.EventIDIn(eventIDs...)).All(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, a := range actors {
		if _, ok := seen[a.EntityID]; !ok {
			seen[a.EntityID] = struct{}{}
			ids = append(ids, a.EntityID)
		}
	}
	for _, s := range subjects {
		if _, ok := seen[s.EntityID]; !ok {
			seen[s.EntityID] = struct{}{}
			ids = append(ids, s.EntityID)
		}
	}
	return r.fetchEntitySummaries(ctx, ids)
}
