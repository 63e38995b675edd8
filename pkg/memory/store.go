package memory

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/ent/artifactrevision"
	"github.com/hybridmem/memstore/ent/eventjob"
	"github.com/hybridmem/memstore/pkg/llmclient"
)

// ingesterAPI is the subset of *ingester.Ingester the Store depends on, kept
// as an interface so a facade test can substitute a fake without an ent
// client.
type ingesterAPI interface {
	Remember(ctx context.Context, req RememberRequest) (RememberResponse, error)
	Forget(ctx context.Context, artifactUID string) (ForgetCascade, error)
}

// retrieverAPI is the subset of *retriever.Retriever the Store depends on.
type retrieverAPI interface {
	Recall(ctx context.Context, req RecallRequest) (RecallResponse, error)
	RecallConversation(ctx context.Context, conversationID string) (ConversationHistoryResponse, error)
}

// llmHealth is the subset of *llmclient.Client the Store depends on for
// status reporting.
type llmHealth interface {
	Health(ctx context.Context, timeout time.Duration) llmclient.HealthStatus
}

// Store is the facade the four RPC tools (remember, recall, forget,
// status) are built on. It does no storage work itself — it validates
// top-level request shape, dispatches to the ingester/retriever, and
// assembles the status snapshot — mirroring the thin "service wraps
// repository" layering of the teacher's pkg/services package.
type Store struct {
	client   *ent.Client
	ingest   ingesterAPI
	retrieve retrieverAPI
	llm      llmHealth
	version  string
	logger   *slog.Logger
}

// New constructs a Store. llm may be nil if no LLM health probe is wired;
// its status is then reported as "unknown".
func New(client *ent.Client, ingest ingesterAPI, retrieve retrieverAPI, llm llmHealth, version string) *Store {
	if client == nil {
		panic("memory: client must not be nil")
	}
	if ingest == nil {
		panic("memory: ingest must not be nil")
	}
	if retrieve == nil {
		panic("memory: retrieve must not be nil")
	}
	return &Store{client: client, ingest: ingest, retrieve: retrieve, llm: llm, version: version, logger: slog.Default()}
}

// Remember implements the remember RPC tool.
func (s *Store) Remember(ctx context.Context, req RememberRequest) (RememberResponse, error) {
	return s.ingest.Remember(ctx, req)
}

// Recall implements the recall RPC tool, dispatching to conversation-history
// mode when the caller supplies conversation_id without a query/id.
func (s *Store) Recall(ctx context.Context, req RecallRequest) (any, error) {
	if req.ConversationID != "" && req.Query == "" && req.ID == "" {
		return s.retrieve.RecallConversation(ctx, req.ConversationID)
	}
	return s.retrieve.Recall(ctx, req)
}

// Forget implements the forget RPC tool. An evt_-prefixed id is rejected
// with guidance rather than an error, per spec.md §6: events are not
// independently forgettable — forget the artifact that produced them.
func (s *Store) Forget(ctx context.Context, req ForgetRequest) (ForgetResponse, error) {
	if !req.Confirm {
		return ForgetResponse{}, NewValidationError("confirm", "must be true")
	}
	if strings.HasPrefix(req.ID, "evt_") {
		return ForgetResponse{
			ID:       req.ID,
			Guidance: "events are not independently forgettable; forget the art_ artifact that produced this event instead",
		}, nil
	}
	if !strings.HasPrefix(req.ID, "art_") {
		return ForgetResponse{}, NewValidationError("id", "must start with art_")
	}

	cascade, err := s.ingest.Forget(ctx, req.ID)
	if err != nil {
		return ForgetResponse{}, err
	}
	return ForgetResponse{Deleted: true, ID: req.ID, Cascade: cascade}, nil
}

// Status implements the status RPC tool: an overall health/size snapshot,
// plus per-job-type status for a specific artifact when artifact_id is
// supplied.
func (s *Store) Status(ctx context.Context, req StatusRequest) (StatusResponse, error) {
	services := s.servicesStatus(ctx)
	counts, err := s.counts(ctx)
	if err != nil {
		return StatusResponse{}, &StoreError{Op: "status_counts", Err: err}
	}

	pending, err := s.client.EventJob.Query().Where(eventjob.StatusEQ(eventjob.StatusPENDING)).Count(ctx)
	if err != nil {
		return StatusResponse{}, &StoreError{Op: "status_pending_jobs", Err: err}
	}

	resp := StatusResponse{
		Version:     s.version,
		Healthy:     services.Vector.Status == "healthy" && services.Relational.Status == "healthy",
		Services:    services,
		Counts:      counts,
		PendingJobs: pending,
	}

	if req.ArtifactID != "" {
		jobs, err := s.client.EventJob.Query().Where(eventjob.ArtifactUIDEQ(req.ArtifactID)).All(ctx)
		if err != nil {
			return StatusResponse{}, &StoreError{Op: "status_job_status", Err: err}
		}
		resp.JobStatus = make([]JobStatus, len(jobs))
		for i, j := range jobs {
			resp.JobStatus[i] = JobStatus{
				ArtifactID: j.ArtifactUID,
				JobType:    string(j.JobType),
				Status:     string(j.Status),
				Attempts:   j.Attempts,
			}
		}
	}

	return resp, nil
}

func (s *Store) servicesStatus(ctx context.Context) ServicesStatus {
	relational := "healthy"
	if _, err := s.client.ArtifactRevision.Query().Count(ctx); err != nil {
		relational = "unhealthy"
		s.logger.Warn("memory: relational health check failed", "error", err)
	}

	// pgvector projects vector storage onto the same Postgres instance as
	// the relational store, so its health tracks the relational probe
	// rather than a separate round-trip.
	vector := relational

	llmStatus := "unknown"
	if s.llm != nil {
		if s.llm.Health(ctx, 2*time.Second).Healthy {
			llmStatus = "healthy"
		} else {
			llmStatus = "unhealthy"
		}
	}

	nodeCount, edgeCount, graphStatus := 0, 0, "unknown"
	if n, err := s.client.GraphNode.Query().Count(ctx); err == nil {
		nodeCount = n
		graphStatus = "healthy"
		if e, err := s.client.GraphEdge.Query().Count(ctx); err == nil {
			edgeCount = e
		} else {
			graphStatus = "unhealthy"
		}
	} else {
		graphStatus = "unhealthy"
	}

	return ServicesStatus{
		Vector:     ServiceStatus{Status: vector},
		Relational: ServiceStatus{Status: relational},
		LLM:        ServiceStatus{Status: llmStatus},
		Graph:      GraphStatus{Status: graphStatus, NodeCount: nodeCount, EdgeCount: edgeCount},
	}
}

func (s *Store) counts(ctx context.Context) (Counts, error) {
	artifacts, err := s.client.ArtifactRevision.Query().Where(artifactrevision.IsLatestEQ(true)).Count(ctx)
	if err != nil {
		return Counts{}, err
	}
	chunks, err := s.client.Chunk.Query().Count(ctx)
	if err != nil {
		return Counts{}, err
	}
	events, err := s.client.SemanticEvent.Query().Count(ctx)
	if err != nil {
		return Counts{}, err
	}
	entities, err := s.client.Entity.Query().Count(ctx)
	if err != nil {
		return Counts{}, err
	}
	return Counts{Artifacts: artifacts, Chunks: chunks, Events: events, Entities: entities}, nil
}
