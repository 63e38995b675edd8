package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmem/memstore/ent"
	testdb "github.com/hybridmem/memstore/test/database"
)

func TestUniqueStrings(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b", "b"}
	assert.Equal(t, []string{"a", "b", "c"}, uniqueStrings(in))
}

func TestUniqueStrings_Empty(t *testing.T) {
	assert.Empty(t, uniqueStrings(nil))
}

func seedEntity(t *testing.T, client *ent.Client, name string) *ent.Entity {
	t.Helper()
	en, err := client.Entity.Create().
		SetID(uuid.NewString()).
		SetEntityType("person").
		SetCanonicalName(name).
		SetNormalizedName(name).
		SetFirstSeenArtifactUID("artifact-1").
		SetFirstSeenRevisionID("revision-1").
		Save(context.Background())
	require.NoError(t, err)
	return en
}

func seedEvent(t *testing.T, client *ent.Client, artifactUID, revisionID, category string) *ent.SemanticEvent {
	t.Helper()
	ev, err := client.SemanticEvent.Create().
		SetID(uuid.NewString()).
		SetArtifactUID(artifactUID).
		SetRevisionID(revisionID).
		SetCategory(category).
		SetNarrative("something happened").
		SetConfidence(0.9).
		SetExtractionRunID(uuid.NewString()).
		Save(context.Background())
	require.NoError(t, err)
	return ev
}

func TestMaterializer_Upsert_CreatesNodesAndEdges(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	actor := seedEntity(t, client.Client, "Alice")
	subject := seedEntity(t, client.Client, "Bob")
	ev := seedEvent(t, client.Client, "artifact-1", "revision-1", "decision")

	_, err := client.Client.EventActor.Create().
		SetEventID(ev.ID).
		SetEntityID(actor.ID).
		SetRole("owner").
		Save(ctx)
	require.NoError(t, err)
	_, err = client.Client.EventSubject.Create().
		SetEventID(ev.ID).
		SetEntityID(subject.ID).
		Save(ctx)
	require.NoError(t, err)

	m := New(client.Client)
	require.NoError(t, m.Upsert(ctx, "artifact-1", "revision-1"))

	eventNode, err := client.Client.GraphNode.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "event", string(eventNode.NodeType))
	require.NotNil(t, eventNode.Category)
	assert.Equal(t, "decision", *eventNode.Category)

	actorNode, err := client.Client.GraphNode.Get(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, "entity", string(actorNode.NodeType))

	edges, err := client.Client.GraphEdge.Query().All(ctx)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestMaterializer_Upsert_ReplacesStaleEventNodesOnRerun(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	ev1 := seedEvent(t, client.Client, "artifact-1", "revision-1", "decision")

	m := New(client.Client)
	require.NoError(t, m.Upsert(ctx, "artifact-1", "revision-1"))

	// Simulate re-extraction: ev1 deleted, a new event takes its place for
	// the same revision.
	require.NoError(t, client.Client.SemanticEvent.DeleteOne(ev1).Exec(ctx))
	ev2 := seedEvent(t, client.Client, "artifact-1", "revision-1", "risk")

	require.NoError(t, m.Upsert(ctx, "artifact-1", "revision-1"))

	_, err := client.Client.GraphNode.Get(ctx, ev1.ID)
	assert.True(t, ent.IsNotFound(err))

	node, err := client.Client.GraphNode.Get(ctx, ev2.ID)
	require.NoError(t, err)
	require.NotNil(t, node.Category)
	assert.Equal(t, "risk", *node.Category)
}

func TestMaterializer_Upsert_MaterializesPossiblySameEdges(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	a := seedEntity(t, client.Client, "Alice")
	b := seedEntity(t, client.Client, "Alicia")
	ev := seedEvent(t, client.Client, "artifact-1", "revision-1", "decision")
	_, err := client.Client.EventActor.Create().SetEventID(ev.ID).SetEntityID(a.ID).Save(ctx)
	require.NoError(t, err)

	_, err = client.Client.EntityRelation.Create().
		SetID(uuid.NewString()).
		SetEntityID(a.ID).
		SetOtherEntityID(b.ID).
		SetConfidence(0.7).
		SetReason("similar name, unconfirmed").
		Save(ctx)
	require.NoError(t, err)

	m := New(client.Client)
	require.NoError(t, m.Upsert(ctx, "artifact-1", "revision-1"))

	edges, err := client.Client.GraphEdge.Query().Where().All(ctx)
	require.NoError(t, err)
	var found bool
	for _, e := range edges {
		if string(e.EdgeType) == "POSSIBLY_SAME" {
			found = true
			assert.Equal(t, a.ID, e.FromID)
			assert.Equal(t, b.ID, e.ToID)
		}
	}
	assert.True(t, found, "expected a POSSIBLY_SAME edge")
}

func TestExpander_Expand_ReturnsOneHopNeighborsExcludingSeeds(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	shared := seedEntity(t, client.Client, "Shared Actor")
	seed := seedEvent(t, client.Client, "artifact-1", "revision-1", "decision")
	neighbor := seedEvent(t, client.Client, "artifact-1", "revision-1", "risk")

	_, err := client.Client.EventActor.Create().SetEventID(seed.ID).SetEntityID(shared.ID).Save(ctx)
	require.NoError(t, err)
	_, err = client.Client.EventActor.Create().SetEventID(neighbor.ID).SetEntityID(shared.ID).Save(ctx)
	require.NoError(t, err)

	m := New(client.Client)
	require.NoError(t, m.Upsert(ctx, "artifact-1", "revision-1"))

	x := NewExpander(client.Client)
	related, err := x.Expand(ctx, []string{seed.ID}, nil, 10)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, neighbor.ID, related[0].EventID)
	assert.Equal(t, "ACTED_IN", related[0].EdgeType)
}

func TestExpander_Expand_FiltersByCategory(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()

	shared := seedEntity(t, client.Client, "Shared Actor")
	seed := seedEvent(t, client.Client, "artifact-1", "revision-1", "decision")
	matching := seedEvent(t, client.Client, "artifact-1", "revision-1", "risk")
	nonMatching := seedEvent(t, client.Client, "artifact-1", "revision-1", "update")

	for _, ev := range []*ent.SemanticEvent{seed, matching, nonMatching} {
		_, err := client.Client.EventActor.Create().SetEventID(ev.ID).SetEntityID(shared.ID).Save(ctx)
		require.NoError(t, err)
	}

	m := New(client.Client)
	require.NoError(t, m.Upsert(ctx, "artifact-1", "revision-1"))

	x := NewExpander(client.Client)
	related, err := x.Expand(ctx, []string{seed.ID}, []string{"risk"}, 10)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, matching.ID, related[0].EventID)
}

func TestExpander_Expand_EmptySeedsReturnsNil(t *testing.T) {
	client := testdb.NewTestClient(t)
	x := NewExpander(client.Client)
	related, err := x.Expand(context.Background(), nil, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, related)
}
