package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldChunk(t *testing.T) {
	cfg := DefaultConfig()

	short := "a quick note about the meeting"
	assert.False(t, ShouldChunk(short, cfg))

	long := strings.Repeat("word ", cfg.SinglePieceMax+50)
	assert.True(t, ShouldChunk(long, cfg))
}

func TestChunk_SinglePiece(t *testing.T) {
	cfg := DefaultConfig()
	text := "Alice met Bob at the planning review."

	chunks := Chunk(text, "art_1", cfg)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, len(text), chunks[0].EndChar)
}

func TestChunk_Empty(t *testing.T) {
	cfg := DefaultConfig()
	chunks := Chunk("", "art_1", cfg)
	assert.Nil(t, chunks)
}

func TestChunk_Overlap(t *testing.T) {
	cfg := Config{SinglePieceMax: 10, ChunkTarget: 10, ChunkOverlap: 3}
	text := strings.Repeat("word ", 50)

	chunks := Chunk(text, "art_2", cfg)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.LessOrEqual(t, c.TokenCount, cfg.ChunkTarget)
		assert.Equal(t, text[c.StartChar:c.EndChar], c.Text)
	}

	// Overlap: the tail tokens of chunk N should reappear at the head of
	// chunk N+1.
	firstTokens := Tokenize(chunks[0].Text)
	secondTokens := Tokenize(chunks[1].Text)
	overlapCount := cfg.ChunkOverlap
	require.GreaterOrEqual(t, len(firstTokens), overlapCount)
	require.GreaterOrEqual(t, len(secondTokens), overlapCount)
	tailOfFirst := firstTokens[len(firstTokens)-overlapCount:]
	headOfSecond := secondTokens[:overlapCount]
	for i := range tailOfFirst {
		assert.Equal(t, tailOfFirst[i].Text, headOfSecond[i].Text)
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	id1 := ChunkID("art_1", 0, "hello world")
	id2 := ChunkID("art_1", 0, "hello world")
	assert.Equal(t, id1, id2)

	id3 := ChunkID("art_1", 0, "different text")
	assert.NotEqual(t, id1, id3)

	assert.True(t, strings.HasPrefix(id1, "art_1::chunk::000::"))
}

func TestChunk_RechunkIsIdempotent(t *testing.T) {
	cfg := Config{SinglePieceMax: 10, ChunkTarget: 10, ChunkOverlap: 3}
	text := strings.Repeat("word ", 50)

	first := Chunk(text, "art_3", cfg)
	second := Chunk(text, "art_3", cfg)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestTokenCount(t *testing.T) {
	assert.Equal(t, 0, TokenCount(""))
	assert.Equal(t, 2, TokenCount("hello world"))
	assert.Equal(t, 3, TokenCount("hello, world"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("  hello   world  \n"))
}
