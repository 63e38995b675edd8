package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	forgetCascade ForgetCascade
	forgetErr     error
	forgottenID   string
}

func (f *fakeIngester) Remember(ctx context.Context, req RememberRequest) (RememberResponse, error) {
	return RememberResponse{}, nil
}

func (f *fakeIngester) Forget(ctx context.Context, artifactUID string) (ForgetCascade, error) {
	f.forgottenID = artifactUID
	return f.forgetCascade, f.forgetErr
}

type fakeRetriever struct {
	recallCalled       bool
	conversationCalled bool
	conversationID     string
}

func (f *fakeRetriever) Recall(ctx context.Context, req RecallRequest) (RecallResponse, error) {
	f.recallCalled = true
	return RecallResponse{}, nil
}

func (f *fakeRetriever) RecallConversation(ctx context.Context, conversationID string) (ConversationHistoryResponse, error) {
	f.conversationCalled = true
	f.conversationID = conversationID
	return ConversationHistoryResponse{ConversationID: conversationID}, nil
}

func TestForget_RejectsMissingConfirm(t *testing.T) {
	s := &Store{ingest: &fakeIngester{}, retrieve: &fakeRetriever{}}
	_, err := s.Forget(context.Background(), ForgetRequest{ID: "art_abc12345", Confirm: false})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "confirm", ve.Field)
}

func TestForget_EvtIDReturnsGuidanceNotError(t *testing.T) {
	ing := &fakeIngester{}
	s := &Store{ingest: ing, retrieve: &fakeRetriever{}}
	resp, err := s.Forget(context.Background(), ForgetRequest{ID: "evt_abc12345", Confirm: true})
	require.NoError(t, err)
	assert.False(t, resp.Deleted)
	assert.NotEmpty(t, resp.Guidance)
	assert.Empty(t, ing.forgottenID)
}

func TestForget_RejectsUnknownIDPrefix(t *testing.T) {
	s := &Store{ingest: &fakeIngester{}, retrieve: &fakeRetriever{}}
	_, err := s.Forget(context.Background(), ForgetRequest{ID: "abc12345", Confirm: true})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field)
}

func TestForget_DelegatesToIngesterForArtIDs(t *testing.T) {
	ing := &fakeIngester{forgetCascade: ForgetCascade{Chunks: 2, Events: 1, Entities: 3}}
	s := &Store{ingest: ing, retrieve: &fakeRetriever{}}
	resp, err := s.Forget(context.Background(), ForgetRequest{ID: "art_abc12345", Confirm: true})
	require.NoError(t, err)
	assert.True(t, resp.Deleted)
	assert.Equal(t, "art_abc12345", ing.forgottenID)
	assert.Equal(t, ForgetCascade{Chunks: 2, Events: 1, Entities: 3}, resp.Cascade)
}

func TestRecall_DispatchesToConversationHistoryWhenOnlyConversationIDSet(t *testing.T) {
	ret := &fakeRetriever{}
	s := &Store{ingest: &fakeIngester{}, retrieve: ret}
	out, err := s.Recall(context.Background(), RecallRequest{ConversationID: "conv-1"})
	require.NoError(t, err)
	assert.True(t, ret.conversationCalled)
	assert.False(t, ret.recallCalled)
	assert.Equal(t, "conv-1", ret.conversationID)
	_ = out
}

func TestRecall_DispatchesToSemanticSearchWhenQuerySet(t *testing.T) {
	ret := &fakeRetriever{}
	s := &Store{ingest: &fakeIngester{}, retrieve: ret}
	_, err := s.Recall(context.Background(), RecallRequest{ConversationID: "conv-1", Query: "what did we decide"})
	require.NoError(t, err)
	assert.True(t, ret.recallCalled)
	assert.False(t, ret.conversationCalled)
}
