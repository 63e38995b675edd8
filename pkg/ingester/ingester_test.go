package ingester

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridmem/memstore/pkg/memory"
)

func TestValidate_RejectsEmptyAndOversizedContent(t *testing.T) {
	_, err := validate(memory.RememberRequest{Content: "", Context: "note"})
	require.Error(t, err)

	big := make([]byte, maxContentBytes+1)
	_, err = validate(memory.RememberRequest{Content: string(big), Context: "note"})
	require.Error(t, err)
}

func TestValidate_RejectsUnknownContext(t *testing.T) {
	_, err := validate(memory.RememberRequest{Content: "hi", Context: "nonsense"})
	var ve *memory.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "context", ve.Field)
}

func TestValidate_AppliesDefaults(t *testing.T) {
	req, err := validate(memory.RememberRequest{Content: "hi", Context: "note"})
	require.NoError(t, err)
	assert.Equal(t, "normal", req.Sensitivity)
	assert.Equal(t, "team", req.VisibilityScope)
	assert.Equal(t, "forever", req.RetentionPolicy)
	assert.Equal(t, 0.5, req.Importance)
}

func TestValidate_RejectsOutOfRangeImportance(t *testing.T) {
	_, err := validate(memory.RememberRequest{Content: "hi", Context: "note", Importance: 1.5})
	require.Error(t, err)
}

func TestValidate_ConversationRequiresConversationIDAndTurnIndex(t *testing.T) {
	_, err := validate(memory.RememberRequest{Content: "hi", Context: "conversation"})
	require.Error(t, err)

	turn := 3
	_, err = validate(memory.RememberRequest{
		Content: "hi", Context: "conversation", ConversationID: "conv-1", TurnIndex: &turn,
	})
	require.NoError(t, err)
}

func TestArtifactTypeForContext(t *testing.T) {
	cases := map[string]string{
		"email":        "email",
		"doc":          "doc",
		"chat":         "chat",
		"transcript":   "transcript",
		"note":         "note",
		"meeting":      "transcript",
		"conversation": "chat",
		"preference":   "note",
		"fact":         "note",
		"decision":     "note",
		"project":      "note",
		"unmapped":     "note",
	}
	for context, want := range cases {
		assert.Equal(t, want, artifactTypeForContext(context), context)
	}
}

func TestFingerprint_DeterministicOnContent(t *testing.T) {
	req := memory.RememberRequest{Content: "the quarterly review happened"}
	uid1, hash1, rev1, art1 := fingerprint(req)
	uid2, hash2, rev2, art2 := fingerprint(req)
	assert.Equal(t, uid1, uid2)
	assert.Equal(t, hash1, hash2)
	assert.Equal(t, rev1, rev2)
	assert.Equal(t, art1, art2)
	assert.True(t, len(uid1) > len("art_"))
	assert.Equal(t, "art_", uid1[:4])
	assert.Equal(t, hash1, rev1)
}

func TestFingerprint_PrefersSourceIdentityOverContentHash(t *testing.T) {
	withSource := memory.RememberRequest{Content: "body one", Source: "slack", SourceID: "C123:456"}
	sameSourceDifferentContent := memory.RememberRequest{Content: "body two", Source: "slack", SourceID: "C123:456"}

	uid1, _, _, _ := fingerprint(withSource)
	uid2, _, _, _ := fingerprint(sameSourceDifferentContent)
	assert.Equal(t, uid1, uid2, "same source identity must yield the same artifact_uid regardless of content")

	withoutSource := memory.RememberRequest{Content: "body one"}
	uid3, _, _, _ := fingerprint(withoutSource)
	assert.NotEqual(t, uid1, uid3)
}

func TestShouldQueueEvents(t *testing.T) {
	assert.True(t, shouldQueueEvents("doc", 500, 100))
	assert.True(t, shouldQueueEvents("conversation", 150, 100))
	assert.False(t, shouldQueueEvents("conversation", 50, 100))
	assert.True(t, shouldQueueEvents("note", 5, 100), "skip only applies to conversation context")
}
