// Package chunker splits artifact text into token-bounded pieces for
// embedding, using a deterministic tokenizer so that chunk boundaries and
// derived chunk IDs are stable across re-ingestion of identical text.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Config controls chunk sizing. Zero value is invalid; use DefaultConfig or
// ConfigFrom (config.ChunkerConfig.ToChunkerConfig adapts loaded config).
type Config struct {
	// SinglePieceMax is the token count above which an artifact is chunked
	// rather than stored as a single piece.
	SinglePieceMax int
	// ChunkTarget is the maximum token count per chunk.
	ChunkTarget int
	// ChunkOverlap is the number of trailing tokens repeated at the start
	// of the next chunk, to preserve context across a chunk boundary.
	ChunkOverlap int
}

// DefaultConfig returns the spec's documented defaults (1200/900/100).
func DefaultConfig() Config {
	return Config{
		SinglePieceMax: 1200,
		ChunkTarget:    900,
		ChunkOverlap:   100,
	}
}

// ConfigFrom builds a Config from the three tunable fields, matching the
// shape of config.ChunkerConfig without introducing an import dependency
// on the config package.
func ConfigFrom(singlePieceMax, chunkTarget, chunkOverlap int) Config {
	return Config{
		SinglePieceMax: singlePieceMax,
		ChunkTarget:    chunkTarget,
		ChunkOverlap:   chunkOverlap,
	}
}

// Token is a tokenizer output unit: a substring of the original text with
// its character span, in order to invert token windows back to char ranges.
type Token struct {
	Text  string
	Start int // inclusive byte offset into the original string
	End   int // exclusive byte offset
}

// Chunk is one piece produced by Chunk, with char offsets relative to the
// original artifact text.
type Chunk struct {
	Index      int
	Text       string
	StartChar  int
	EndChar    int
	TokenCount int
	ID         string
}

// Tokenize splits text into a deterministic sequence of word and
// punctuation tokens with byte offsets. It stands in for a model-specific
// BPE tokenizer: the contract only requires determinism and offset
// invertibility, not a match to any particular vendor's encoding table.
func Tokenize(text string) []Token {
	var tokens []Token
	runes := []rune(text)
	n := len(runes)

	byteOffset := func(runeIdx int) int {
		return len(string(runes[:runeIdx]))
	}

	i := 0
	for i < n {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			start := i
			for i < n && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			tokens = append(tokens, Token{
				Text:  string(runes[start:i]),
				Start: byteOffset(start),
				End:   byteOffset(i),
			})
		default:
			// Punctuation/symbols tokenize one rune at a time, matching how
			// BPE tokenizers typically isolate short symbol runs.
			start := i
			i++
			tokens = append(tokens, Token{
				Text:  string(runes[start:i]),
				Start: byteOffset(start),
				End:   byteOffset(i),
			})
		}
	}
	return tokens
}

// TokenCount returns the deterministic token count for text, matching the
// embedding model's nominal encoding closely enough for chunk-sizing
// decisions.
func TokenCount(text string) int {
	return len(Tokenize(text))
}

// ShouldChunk reports whether text exceeds the single-piece token budget.
func ShouldChunk(text string, cfg Config) bool {
	return TokenCount(text) > cfg.SinglePieceMax
}

// Chunk splits text into overlapping, token-bounded pieces. artifactID
// seeds the deterministic chunk IDs. Chunker never fails on well-formed
// UTF-8; degenerate inputs (empty, single-token) yield zero or one chunk.
func Chunk(text string, artifactID string, cfg Config) []Chunk {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	if !ShouldChunk(text, cfg) {
		return []Chunk{newChunk(0, text, 0, len(text), tokens, artifactID)}
	}

	step := cfg.ChunkTarget - cfg.ChunkOverlap
	if step <= 0 {
		step = cfg.ChunkTarget
	}

	var chunks []Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + cfg.ChunkTarget
		if end > len(tokens) {
			end = len(tokens)
		}
		window := tokens[start:end]
		startChar := window[0].Start
		endChar := window[len(window)-1].End
		chunks = append(chunks, newChunk(len(chunks), text[startChar:endChar], startChar, endChar, window, artifactID))

		if end == len(tokens) {
			break
		}
	}
	return chunks
}

func newChunk(index int, text string, startChar, endChar int, tokens []Token, artifactID string) Chunk {
	return Chunk{
		Index:      index,
		Text:       text,
		StartChar:  startChar,
		EndChar:    endChar,
		TokenCount: len(tokens),
		ID:         ChunkID(artifactID, index, text),
	}
}

// ChunkID computes the deterministic chunk identifier
// {artifact_id}::chunk::{index:03d}::{sha256(chunk_text)[:8]}. Re-chunking
// identical text for the same artifact yields identical IDs.
func ChunkID(artifactID string, index int, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s::chunk::%03d::%s", artifactID, index, hex.EncodeToString(sum[:])[:8])
}

// ContentHash computes the sha256 hex digest of text, used for artifact and
// chunk content-addressing elsewhere in the ingest pipeline.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Normalize trims and collapses internal whitespace, used ahead of
// tokenization so that cosmetic whitespace differences don't change chunk
// boundaries or content hashes unexpectedly. It does not alter case or
// punctuation.
func Normalize(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}
