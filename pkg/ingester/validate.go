package ingester

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/hybridmem/memstore/pkg/memory"
)

const (
	minContentBytes = 1
	maxContentBytes = 10 * 1024 * 1024
)

var allowedContexts = map[string]struct{}{
	"meeting": {}, "email": {}, "doc": {}, "chat": {}, "transcript": {}, "note": {},
	"preference": {}, "fact": {}, "decision": {}, "project": {}, "conversation": {},
}

// contextToArtifactType maps the remember request's (wider) context vocabulary
// onto ArtifactRevision's narrower artifact_type enum. Contexts without an
// obvious one-to-one match collapse onto the closest generic bucket.
var contextToArtifactType = map[string]string{
	"email": "email", "doc": "doc", "chat": "chat", "transcript": "transcript", "note": "note",
	"meeting":      "transcript",
	"conversation": "chat",
	"preference":   "note",
	"fact":         "note",
	"decision":     "note",
	"project":      "note",
}

var allowedSensitivity = map[string]struct{}{"normal": {}, "sensitive": {}, "highly_sensitive": {}}
var allowedVisibilityScope = map[string]struct{}{"me": {}, "team": {}, "org": {}, "custom": {}}
var allowedRetentionPolicy = map[string]struct{}{"forever": {}, "1y": {}, "until_resolved": {}, "custom": {}}

func artifactTypeForContext(context string) string {
	if t, ok := contextToArtifactType[context]; ok {
		return t
	}
	return "note"
}

// validate checks req against the remember contract's enum/range rules and
// returns a copy with sensitivity/visibility_scope/retention_policy/importance
// defaults applied, mirroring the ent schema's own column defaults.
func validate(req memory.RememberRequest) (memory.RememberRequest, error) {
	n := len(req.Content)
	if n < minContentBytes || n > maxContentBytes {
		return req, memory.NewValidationError("content", "must be between 1 and 10MB")
	}
	if _, ok := allowedContexts[req.Context]; !ok {
		return req, memory.NewValidationError("context", "not one of the allowed context values")
	}

	if req.Sensitivity == "" {
		req.Sensitivity = "normal"
	} else if _, ok := allowedSensitivity[req.Sensitivity]; !ok {
		return req, memory.NewValidationError("sensitivity", "not one of normal, sensitive, highly_sensitive")
	}
	if req.VisibilityScope == "" {
		req.VisibilityScope = "team"
	} else if _, ok := allowedVisibilityScope[req.VisibilityScope]; !ok {
		return req, memory.NewValidationError("visibility_scope", "not one of me, team, org, custom")
	}
	if req.RetentionPolicy == "" {
		req.RetentionPolicy = "forever"
	} else if _, ok := allowedRetentionPolicy[req.RetentionPolicy]; !ok {
		return req, memory.NewValidationError("retention_policy", "not one of forever, 1y, until_resolved, custom")
	}
	if req.Importance == 0 {
		req.Importance = 0.5
	} else if req.Importance < 0 || req.Importance > 1 {
		return req, memory.NewValidationError("importance", "must be within [0,1]")
	}

	if req.Context == "conversation" {
		if req.ConversationID == "" {
			return req, memory.NewValidationError("conversation_id", "required when context is conversation")
		}
		if req.TurnIndex == nil {
			return req, memory.NewValidationError("turn_index", "required when context is conversation")
		}
	}
	return req, nil
}

// fingerprint computes the artifact's stable identity and content
// addressing per spec.md §4.3 step 2.
func fingerprint(req memory.RememberRequest) (artifactUID, contentHash, revisionID, artifactID string) {
	contentHash = sha256Hex(req.Content)
	if req.Source != "" && req.SourceID != "" {
		artifactUID = "art_" + sha256Hex(req.Source+":"+req.SourceID)[:8]
	} else {
		artifactUID = "art_" + contentHash[:8]
	}
	revisionID = contentHash
	// artifact_id is the vector-index ID shared by the content row and its
	// chunks for this revision; reusing revision_id keeps it unique without
	// a second identifier to track.
	artifactID = revisionID
	return artifactUID, contentHash, revisionID, artifactID
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// shouldQueueEvents decides whether a remember call enqueues extract_events,
// applying the optional short-turn skip for low-signal conversation turns
// (spec.md §4.3: "Short turns (<100 tokens) may optionally skip the
// extraction job").
func shouldQueueEvents(context string, tokenCount, shortTurnSkipTokens int) bool {
	if context == "conversation" && tokenCount < shortTurnSkipTokens {
		return false
	}
	return true
}
