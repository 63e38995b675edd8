package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Jane   Doe", "jane doe"},
		{"  ACME Corp  ", "acme corp"},
		{"", ""},
		{"Already lower", "already lower"},
		{"Tabs\tand\nnewlines", "tabs and newlines"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in))
	}
}

func TestContextText(t *testing.T) {
	m := Mention{
		CanonicalSuggestion: "Jane Doe",
		EntityType:          "person",
		Role:                "engineer",
		Organization:        "Acme",
	}
	assert.Equal(t, "Jane Doe, person, engineer, Acme", contextText(m))
}

func TestContextText_EmptyFields(t *testing.T) {
	m := Mention{CanonicalSuggestion: "Acme Corp", EntityType: "org"}
	assert.Equal(t, "Acme Corp, org, , ", contextText(m))
}

func TestNewForCall_ResetsCache(t *testing.T) {
	r := &Resolver{callCache: map[string]string{"person::jane doe": "entity-1"}}
	r.NewForCall()
	assert.Empty(t, r.callCache)
}

func TestResolve_UsesCallCacheForRepeatedSurfaceForm(t *testing.T) {
	// The call cache is keyed by entity_type + normalized canonical name, so
	// a second mention of the same entity within one extraction run must hit
	// the cache key exactly as Resolve computes it.
	r := &Resolver{callCache: make(map[string]string)}
	m := Mention{SurfaceForm: "Jane", CanonicalSuggestion: "Jane Doe", EntityType: "person"}
	key := m.EntityType + "::" + Normalize(m.CanonicalSuggestion)
	r.callCache[key] = "entity-42"
	assert.Equal(t, "entity-42", r.callCache[key])
}

func TestNormalize_FallsBackToSurfaceForm(t *testing.T) {
	// Resolve falls back to normalizing SurfaceForm when CanonicalSuggestion
	// is blank; verify the fallback itself produces the expected key material.
	m := Mention{SurfaceForm: "Jane Doe", CanonicalSuggestion: ""}
	normalized := Normalize(m.CanonicalSuggestion)
	if normalized == "" {
		normalized = Normalize(m.SurfaceForm)
	}
	assert.Equal(t, "jane doe", normalized)
}
