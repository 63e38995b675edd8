// Package memory is the facade the four RPC tools (remember, recall,
// forget, status) are built on: it wires together the chunker, embedder,
// vector index, relational store, and job queue into the public read/write
// paths, and defines the request/response shapes those tools expose.
package memory

import "time"

// RememberRequest is the remember tool's input.
type RememberRequest struct {
	Content          string
	Context          string // meeting, email, doc, chat, transcript, note, preference, fact, decision, project, conversation
	Source           string
	Importance       float64 // [0,1]
	Title            string
	Author           string
	Participants     []string
	Date             *time.Time
	ConversationID   string
	TurnIndex        *int
	Role             string
	Sensitivity      string // normal, sensitive, highly_sensitive
	VisibilityScope  string // me, team, org, custom
	RetentionPolicy  string // forever, 1y, until_resolved, custom
	SourceID         string
	SourceURL        string
}

// RememberResponse is the remember tool's output.
type RememberResponse struct {
	ID           string `json:"id"`
	IsChunked    bool   `json:"is_chunked"`
	NumChunks    int    `json:"num_chunks"`
	EventsQueued bool   `json:"events_queued"`
	Status       string `json:"status"`
}

// RecallRequest is the recall tool's input.
type RecallRequest struct {
	Query           string
	ID              string
	Context         string
	Limit           int
	Expand          bool
	IncludeEvents   bool
	ConversationID  string
	GraphBudget     *int // nil means "use configured default"; 0 means "no expansion"
	GraphFilters    []string
	GraphSeedLimit  int
	ExpandNeighbors bool
	MinImportance   *float64
	Source          string
	Sensitivity     string
	DateFrom        *time.Time
	DateTo          *time.Time
}

// DefaultGraphFilters is used when the caller omits graph_filters.
var DefaultGraphFilters = []string{"Decision", "Commitment", "QualityRisk"}

// RecallResult is one primary hit in a recall response.
type RecallResult struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"` // "artifact", "chunk" or "event"
	Score      float64        `json:"score"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	IsNeighbor bool           `json:"is_neighbor,omitempty"`
}

// RelatedContextItem is one one-hop graph-expansion result.
type RelatedContextItem struct {
	Event    EventSummary `json:"event"`
	EntityID string       `json:"entity_via"`
	EdgeType string       `json:"edge_type"` // ACTED_IN or ABOUT
}

// EventSummary is the retrieval-facing projection of a SemanticEvent.
type EventSummary struct {
	ID         string    `json:"id"`
	Category   string    `json:"category"`
	Narrative  string    `json:"narrative"`
	EventTime  *time.Time `json:"event_time,omitempty"`
	Confidence float64   `json:"confidence"`
}

// EntitySummary is the retrieval-facing projection of an Entity.
type EntitySummary struct {
	ID            string `json:"id"`
	EntityType    string `json:"entity_type"`
	CanonicalName string `json:"canonical_name"`
}

// ExpandOptions is static UX metadata describing what expansion knobs were
// applied, so a client can render "show more" affordances without
// re-deriving defaults.
type ExpandOptions struct {
	GraphBudget    int      `json:"graph_budget"`
	GraphFilters   []string `json:"graph_filters"`
	GraphSeedLimit int      `json:"graph_seed_limit"`
	GraphDegraded  bool     `json:"graph_degraded,omitempty"`
}

// RecallResponse is the recall tool's output for non-conversation mode.
type RecallResponse struct {
	PrimaryResults []RecallResult        `json:"primary_results"`
	RelatedContext []RelatedContextItem  `json:"related_context"`
	Entities       []EntitySummary       `json:"entities"`
	ExpandOptions  ExpandOptions         `json:"expand_options"`
}

// ConversationTurn is one turn in conversation-history mode.
type ConversationTurn struct {
	TurnIndex int       `json:"turn_index"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationHistoryResponse is the recall tool's output when
// conversation_id is supplied and the caller wants raw turn history
// instead of semantic search.
type ConversationHistoryResponse struct {
	Turns          []ConversationTurn `json:"turns"`
	TotalTurns     int                `json:"total_turns"`
	ConversationID string             `json:"conversation_id"`
}

// ForgetRequest is the forget tool's input.
type ForgetRequest struct {
	ID      string
	Confirm bool
}

// ForgetCascade reports what was deleted alongside the artifact.
type ForgetCascade struct {
	Chunks   int `json:"chunks"`
	Events   int `json:"events"`
	Entities int `json:"entities"`
}

// ForgetResponse is the forget tool's output.
type ForgetResponse struct {
	Deleted  bool          `json:"deleted"`
	ID       string        `json:"id"`
	Cascade  ForgetCascade `json:"cascade"`
	Guidance string        `json:"guidance,omitempty"`
}

// StatusRequest is the status tool's input.
type StatusRequest struct {
	ArtifactID string
}

// ServiceStatus reports a single dependency's health.
type ServiceStatus struct {
	Status string `json:"status"` // healthy | unhealthy | unknown
}

// GraphStatus reports graph-backend health plus size.
type GraphStatus struct {
	Status     string `json:"status"`
	NodeCount  int    `json:"node_count"`
	EdgeCount  int    `json:"edge_count"`
}

// ServicesStatus aggregates every dependency's health.
type ServicesStatus struct {
	Vector     ServiceStatus `json:"vector"`
	Relational ServiceStatus `json:"relational"`
	LLM        ServiceStatus `json:"llm"`
	Graph      GraphStatus   `json:"graph"`
}

// Counts reports row counts across the relational store.
type Counts struct {
	Artifacts int `json:"artifacts"`
	Chunks    int `json:"chunks"`
	Events    int `json:"events"`
	Entities  int `json:"entities"`
}

// JobStatus reports the state of jobs for a specific artifact, returned
// only when StatusRequest.ArtifactID is set.
type JobStatus struct {
	ArtifactID string `json:"artifact_id"`
	JobType    string `json:"job_type"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
}

// StatusResponse is the status tool's output.
type StatusResponse struct {
	Version     string         `json:"version"`
	Healthy     bool           `json:"healthy"`
	Services    ServicesStatus `json:"services"`
	Counts      Counts         `json:"counts"`
	PendingJobs int            `json:"pending_jobs"`
	JobStatus   []JobStatus    `json:"job_status,omitempty"`
}
