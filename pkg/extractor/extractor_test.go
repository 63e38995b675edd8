package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hybridmem/memstore/pkg/resolver"
)

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		raw           string
		autonormalize bool
		want          string
	}{
		{"Commitments", true, "Commitment"},
		{"  decisions ", true, "Decision"},
		{"QUALITY RISKS", true, "QualityRisk"},
		{"Commitments", false, "Commitments"},
		{"CustomCategory", true, "CustomCategory"},
		{"Stakeholders", true, "Stakeholder"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, normalizeCategory(c.raw, c.autonormalize))
	}
}

func TestTranslateOffsets(t *testing.T) {
	u := unit{ChunkID: "chunk-1", StartChar: 100, EndChar: 200, Text: "irrelevant"}
	r := phaseAResult{
		Events: []phaseAEvent{
			{
				Category:   "decision",
				Narrative:  "They decided to ship.",
				Confidence: 0.9,
				Evidence: []phaseAEvidence{
					{RelativeStart: 5, RelativeEnd: 15, Quote: "decided to ship"},
				},
			},
		},
	}
	out := translateOffsets(u, r)
	if assert.Len(t, out, 1) {
		assert.Equal(t, 1, len(out[0].Evidence))
		assert.Equal(t, 105, out[0].Evidence[0].Start)
		assert.Equal(t, 115, out[0].Evidence[0].End)
		assert.Equal(t, "chunk-1", out[0].Evidence[0].ChunkID)
	}
}

func TestTranslateEntityOffsets(t *testing.T) {
	u := unit{ChunkID: "chunk-1", StartChar: 100, EndChar: 200, Text: "irrelevant"}
	entities := []phaseAEntity{
		{SurfaceForm: "Jane", StartChar: 5, EndChar: 9},
	}
	out := translateEntityOffsets(u, entities)
	if assert.Len(t, out, 1) {
		assert.Equal(t, 105, out[0].StartChar)
		assert.Equal(t, 109, out[0].EndChar)
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.42, clamp01(0.42))
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "one two three", truncateWords("one two three", 5))
	assert.Equal(t, "one two…", truncateWords("one two three four", 2))
}

func TestResolveEntities_BuildsLookupByNormalizedSurfaceAndAliases(t *testing.T) {
	// Pure-logic check of the normalization key construction that
	// resolveEntities relies on; full resolution requires a live resolver.
	pe := phaseAEntity{SurfaceForm: "Jane", CanonicalSuggestion: "Jane Doe", Aliases: []string{"JD"}}
	keys := []string{
		resolver.Normalize(pe.SurfaceForm),
		resolver.Normalize(pe.CanonicalSuggestion),
		resolver.Normalize(pe.Aliases[0]),
	}
	assert.Equal(t, []string{"jane", "jane doe", "jd"}, keys)
}
