// Package queue implements the EventJob queue worker pool: claiming rows
// by job type under FOR UPDATE SKIP LOCKED, dispatching extract_events to
// the event extractor and graph_upsert to the graph materializer, and
// retrying failures with exponential backoff, per spec.md §4.4 and §5.
// Grounded on the teacher's pkg/queue worker/pool/orphan-detection shape,
// re-pointed from AlertSession's single-queue claim to EventJob's
// claim-by-type contract.
package queue

import (
	"context"
	"errors"
	"time"
)

// ErrNoJobsAvailable indicates no pending job of the requested type exists.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Extractor is the subset of *extractor.Extractor a Worker dispatches
// extract_events jobs to.
type Extractor interface {
	Run(ctx context.Context, jobID, artifactUID, revisionID string, graphMaxAttempts int) error
}

// Materializer is the subset of *graph.Materializer a Worker dispatches
// graph_upsert jobs to.
type Materializer interface {
	Upsert(ctx context.Context, artifactUID, revisionID string) error
}

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth reports a single worker's health.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"`
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}

// PoolHealth reports the health of the entire worker pool.
type PoolHealth struct {
	IsHealthy      bool           `json:"is_healthy"`
	DBReachable    bool           `json:"db_reachable"`
	DBError        string         `json:"db_error,omitempty"`
	TotalWorkers   int            `json:"total_workers"`
	ActiveWorkers  int            `json:"active_workers"`
	PendingJobs    int            `json:"pending_jobs"`
	WorkerStats    []WorkerHealth `json:"worker_stats"`
	LastReapScan   time.Time      `json:"last_reap_scan"`
	JobsReaped     int            `json:"jobs_reaped"`
}

// claimedJob is one row claimed by claimJobByType.
type claimedJob struct {
	ID          string
	JobType     string
	ArtifactUID string
	RevisionID  string
	Attempts    int
}
