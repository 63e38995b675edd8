package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmem/memstore/pkg/memory"
	testdb "github.com/hybridmem/memstore/test/database"
)

type fakeIngester struct{}

func (fakeIngester) Remember(ctx context.Context, req memory.RememberRequest) (memory.RememberResponse, error) {
	return memory.RememberResponse{}, nil
}

func (fakeIngester) Forget(ctx context.Context, artifactUID string) (memory.ForgetCascade, error) {
	return memory.ForgetCascade{}, nil
}

type fakeRetriever struct{}

func (fakeRetriever) Recall(ctx context.Context, req memory.RecallRequest) (memory.RecallResponse, error) {
	return memory.RecallResponse{}, nil
}

func (fakeRetriever) RecallConversation(ctx context.Context, conversationID string) (memory.ConversationHistoryResponse, error) {
	return memory.ConversationHistoryResponse{ConversationID: conversationID}, nil
}

func startTestServer(t *testing.T) string {
	t.Helper()
	dbClient := testdb.NewTestClient(t)
	store := memory.New(dbClient.Client, fakeIngester{}, fakeRetriever{}, nil, "test")
	srv := NewServer(dbClient, store, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = srv.StartWithListener(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return ln.Addr().String()
}

func TestHealthzHandler_ReturnsHealthyWhenDatabaseReachable(t *testing.T) {
	addr := startTestServer(t)

	resp, err := http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, healthStatusHealthy, body.Status)
	assert.Equal(t, healthStatusHealthy, body.Checks["database"].Status)
}

func TestStatusHandler_ReturnsStatusResponse(t *testing.T) {
	addr := startTestServer(t)

	resp, err := http.Get("http://" + addr + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body memory.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "test", body.Version)
}
