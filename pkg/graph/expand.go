package graph

import (
	"context"
	"fmt"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/graphedge"
	"github.com/hybridmem/memstore/ent/graphnode"
)

// RelatedEvent is one one-hop graph-expansion result: an event reached from
// a seed event via a shared entity.
type RelatedEvent struct {
	EventID  string
	EntityID string
	EdgeType string // ACTED_IN or ABOUT
}

// Expander serves the retriever's one-hop graph expansion (spec.md §4.8
// step 8).
type Expander struct {
	client *ent.Client
}

// NewExpander constructs an Expander.
func NewExpander(client *ent.Client) *Expander {
	return &Expander{client: client}
}

// Expand returns, for the given seed event IDs, events reachable one hop
// away via a shared entity (excluding the seeds themselves), optionally
// filtered by event category, capped at budget rows.
func (x *Expander) Expand(ctx context.Context, seedEventIDs []string, categoryFilter []string, budget int) ([]RelatedEvent, error) {
	if len(seedEventIDs) == 0 || budget <= 0 {
		return nil, nil
	}

	entityIDs, err := x.entitiesForEvents(ctx, seedEventIDs)
	if err != nil {
		return nil, fmt.Errorf("graph: entities for seeds: %w", err)
	}
	if len(entityIDs) == 0 {
		return nil, nil
	}

	seedSet := make(map[string]struct{}, len(seedEventIDs))
	for _, id := range seedEventIDs {
		seedSet[id] = struct{}{}
	}

	var categoryAllow map[string]struct{}
	if len(categoryFilter) > 0 {
		categoryAllow = make(map[string]struct{}, len(categoryFilter))
		for _, c := range categoryFilter {
			categoryAllow[c] = struct{}{}
		}
	}

	var out []RelatedEvent

	// ACTED_IN: from_id=entity, to_id=event.
	actedIn, err := x.client.GraphEdge.Query().
		Where(graphedge.EdgeTypeEQ(graphedge.EdgeTypeACTED_IN), graphedge.FromIDIn(entityIDs...)).
		All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range actedIn {
		if _, isSeed := seedSet[e.ToID]; isSeed {
			continue
		}
		out = append(out, RelatedEvent{EventID: e.ToID, EntityID: e.FromID, EdgeType: "ACTED_IN"})
	}

	// ABOUT: from_id=event, to_id=entity.
	about, err := x.client.GraphEdge.Query().
		Where(graphedge.EdgeTypeEQ(graphedge.EdgeTypeABOUT), graphedge.ToIDIn(entityIDs...)).
		All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range about {
		if _, isSeed := seedSet[e.FromID]; isSeed {
			continue
		}
		out = append(out, RelatedEvent{EventID: e.FromID, EntityID: e.ToID, EdgeType: "ABOUT"})
	}

	if categoryAllow != nil {
		out, err = x.filterByCategory(ctx, out, categoryAllow)
		if err != nil {
			return nil, err
		}
	}

	if len(out) > budget {
		out = out[:budget]
	}
	return out, nil
}

func (x *Expander) entitiesForEvents(ctx context.Context, eventIDs []string) ([]string, error) {
	seen := make(map[string]struct{})

	actedIn, err := x.client.GraphEdge.Query().
		Where(graphedge.EdgeTypeEQ(graphedge.EdgeTypeACTED_IN), graphedge.ToIDIn(eventIDs...)).
		All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range actedIn {
		seen[e.FromID] = struct{}{}
	}

	about, err := x.client.GraphEdge.Query().
		Where(graphedge.EdgeTypeEQ(graphedge.EdgeTypeABOUT), graphedge.FromIDIn(eventIDs...)).
		All(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range about {
		seen[e.ToID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids, nil
}

func (x *Expander) filterByCategory(ctx context.Context, in []RelatedEvent, allow map[string]struct{}) ([]RelatedEvent, error) {
	eventIDs := make([]string, 0, len(in))
	for _, r := range in {
		eventIDs = append(eventIDs, r.EventID)
	}
	nodes, err := x.client.GraphNode.Query().
		Where(graphnode.IDIn(eventIDs...), graphnode.NodeTypeEQ(graphnode.NodeTypeEvent)).
		All(ctx)
	if err != nil {
		return nil, err
	}
	categoryByEvent := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if n.Category != nil {
			categoryByEvent[n.ID] = *n.Category
		}
	}

	out := make([]RelatedEvent, 0, len(in))
	for _, r := range in {
		cat, ok := categoryByEvent[r.EventID]
		if !ok {
			continue
		}
		if _, allowed := allow[cat]; allowed {
			out = append(out, r)
		}
	}
	return out, nil
}
