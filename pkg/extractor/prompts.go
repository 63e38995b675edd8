package extractor

import (
	"encoding/json"
	"fmt"
)

const promptASystem = `You extract structured entities and events from a single span of a larger document. Respond with strict JSON only, matching the schema you are given. Offsets are relative to the span of text you were given, not the whole document.`

func promptAUser(text string) string {
	return fmt.Sprintf(`Span text:
%s

Extract:
- entities[]: {surface_form, canonical_suggestion, type (person|org|project|object|place|other), role, organization, email, aliases[], confidence, start_char, end_char}
- events[]: {category, event_time (ISO-8601 or null), narrative (1-2 sentences), subject (surface_form of entity the event is about), actors[] ({surface_form, role}), confidence, evidence[] ({start_char, end_char, quote})}

Respond as JSON: {"entities": [...], "events": [...]}`, text)
}

func parsePhaseA(raw string) (phaseAResult, error) {
	var r phaseAResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return phaseAResult{}, fmt.Errorf("extractor: malformed phase-A JSON: %w", err)
	}
	return r, nil
}

const promptBSystem = `You canonicalize events extracted independently from spans of one document. Merge events whose narratives describe the same underlying act, even if paraphrased differently, and union their evidence. Resolve aliases so the same real-world entity uses one consistent surface form across all events you return. Respond with strict JSON only.`

// promptBUser renders the flat list of Phase-A events (as JSON) plus a flat,
// indexed evidence list so the model can reference merged spans by index
// instead of re-emitting full evidence text.
func promptBUser(events []absEvent, evidenceFlat []absEvidence) (string, error) {
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return "", err
	}
	evidenceJSON, err := json.Marshal(evidenceFlat)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Phase-A events (one per source span, may contain duplicates of the same act):
%s

Flat evidence list (reference by index in evidence_idx):
%s

Return canonical_events[]: {category, event_time, narrative, subject, actors[] ({surface_form, role}), confidence, evidence_idx[]}.

Respond as JSON: {"canonical_events": [...]}`, string(eventsJSON), string(evidenceJSON)), nil
}

func parsePhaseB(raw string) (phaseBResult, error) {
	var r phaseBResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return phaseBResult{}, fmt.Errorf("extractor: malformed phase-B JSON: %w", err)
	}
	return r, nil
}
