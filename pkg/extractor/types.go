// Package extractor implements the two-phase event extraction pipeline:
// Phase A extracts entities and events per chunk, Phase B canonicalizes
// across chunks into a final event set that atomically replaces the prior
// extraction for the revision. Entity resolution runs inline per ADR-003.
package extractor

import "time"

// unit is one piece of text the extractor runs Phase A over: either an
// actual Chunk row, or a single synthetic unit wrapping the whole artifact
// when the revision was stored unchunked.
type unit struct {
	ChunkID   string // empty when synthetic (unchunked artifact)
	Index     int
	StartChar int
	EndChar   int
	Text      string
}

// phaseAEntity is one entity mention as extracted by Prompt A, offsets
// relative to the unit's text.
type phaseAEntity struct {
	SurfaceForm         string   `json:"surface_form"`
	CanonicalSuggestion string   `json:"canonical_suggestion"`
	Type                string   `json:"type"`
	Role                string   `json:"role"`
	Organization        string   `json:"organization"`
	Email                string  `json:"email"`
	Aliases             []string `json:"aliases"`
	Confidence          float64  `json:"confidence"`
	StartChar           int      `json:"start_char"`
	EndChar             int      `json:"end_char"`
}

// phaseAEvidence is one evidence span, offsets relative to the unit's text.
type phaseAEvidence struct {
	RelativeStart int    `json:"start_char"`
	RelativeEnd   int    `json:"end_char"`
	Quote         string `json:"quote"`
}

// phaseAEvent is one event as extracted by Prompt A from a single unit.
type phaseAEvent struct {
	Category   string           `json:"category"`
	EventTime  *time.Time       `json:"event_time"`
	Narrative  string           `json:"narrative"`
	Subject    string           `json:"subject"`    // surface form of the entity the event is about
	Actors     []phaseAActorRef `json:"actors"`      // surface forms + roles of entities that acted
	Confidence float64          `json:"confidence"`
	Evidence   []phaseAEvidence `json:"evidence"`
}

type phaseAActorRef struct {
	SurfaceForm string `json:"surface_form"`
	Role        string `json:"role"`
}

// phaseAResult is the parsed shape of one Prompt A call.
type phaseAResult struct {
	Entities []phaseAEntity `json:"entities"`
	Events   []phaseAEvent  `json:"events"`
}

// absEvidence is evidence translated to document-absolute offsets, ready
// to write as an EventEvidence row.
type absEvidence struct {
	ChunkID string
	Start   int
	End     int
	Quote   string
}

// absEvent is one Phase-A event after offset translation, still
// un-canonicalized (i.e. one event per mention in its source unit).
type absEvent struct {
	Category   string
	EventTime  *time.Time
	Narrative  string
	Subject    string
	Actors     []phaseAActorRef
	Confidence float64
	Evidence   []absEvidence
}

// canonicalEvent is one event after Phase B canonicalization: narratives
// referring to the same act are merged and their evidence spans unioned.
type canonicalEvent struct {
	Category   string           `json:"category"`
	EventTime  *time.Time       `json:"event_time"`
	Narrative  string           `json:"narrative"`
	Subject    string           `json:"subject"`
	Actors     []phaseAActorRef `json:"actors"`
	Confidence float64          `json:"confidence"`
	Evidence   []absEvidence    `json:"-"`
	// EvidenceIdx indexes back into the flat evidence list passed to Prompt
	// B, since the LLM returns index references rather than re-emitting
	// full spans (keeps the canonicalization response small).
	EvidenceIdx []int `json:"evidence_idx"`
}

// phaseBResult is the parsed shape of the Prompt B call.
type phaseBResult struct {
	CanonicalEvents []canonicalEvent `json:"canonical_events"`
}
