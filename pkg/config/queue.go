package config

import "time"

// QueueConfig contains job queue and worker pool configuration.
// These values control how EventJob rows are polled, claimed, and retried.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines per process. Each
	// worker independently claims and processes jobs by type.
	WorkerCount int `yaml:"worker_count"`

	// PollInterval is the base interval for checking pending jobs when none
	// were available on the last poll.
	PollInterval time.Duration `yaml:"poll_interval"`

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval +/- PollIntervalJitter.
	PollIntervalJitter time.Duration `yaml:"poll_interval_jitter"`

	// JobTimeout bounds a single job's processing time (extraction or
	// graph materialization).
	JobTimeout time.Duration `yaml:"job_timeout"`

	// HeartbeatInterval is loaded but not read by the worker pool: a claimed
	// job's locked_at is set once, at claim time, and is not refreshed while
	// the job runs.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// ReaperInterval is how often the orphan reaper scans for jobs stuck in
	// PROCESSING past ReaperThreshold.
	ReaperInterval time.Duration `yaml:"reaper_interval"`

	// ReaperThreshold is how long a job can sit in PROCESSING, measured from
	// the locked_at set at claim, before it is considered orphaned and
	// requeued.
	ReaperThreshold time.Duration `yaml:"reaper_threshold"`

	// EventMaxAttempts is the default max_attempts for extract_events jobs.
	EventMaxAttempts int `yaml:"event_max_attempts"`

	// GraphMaxAttempts is the default max_attempts for graph_upsert jobs.
	GraphMaxAttempts int `yaml:"graph_max_attempts"`

	// BackoffBase is the base delay used to compute next_run_at on retry:
	// next_run_at = now + BackoffBase * 2^(attempts-1), plus jitter.
	BackoffBase time.Duration `yaml:"backoff_base"`

	// BackoffMax caps the computed backoff delay.
	BackoffMax time.Duration `yaml:"backoff_max"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:        5,
		PollInterval:       1 * time.Second,
		PollIntervalJitter: 500 * time.Millisecond,
		JobTimeout:         5 * time.Minute,
		HeartbeatInterval:  30 * time.Second,
		ReaperInterval:     5 * time.Minute,
		ReaperThreshold:    10 * time.Minute,
		EventMaxAttempts:   5,
		GraphMaxAttempts:   5,
		BackoffBase:        1 * time.Second,
		BackoffMax:         5 * time.Minute,
	}
}

// Validate checks the queue configuration for internal consistency.
func (c *QueueConfig) Validate() error {
	if c.WorkerCount < 1 {
		return NewValidationError("queue", "worker_count", ErrInvalidValue)
	}
	if c.PollInterval <= 0 {
		return NewValidationError("queue", "poll_interval", ErrInvalidValue)
	}
	if c.EventMaxAttempts < 1 || c.GraphMaxAttempts < 1 {
		return NewValidationError("queue", "max_attempts", ErrInvalidValue)
	}
	if c.BackoffBase <= 0 || c.BackoffMax < c.BackoffBase {
		return NewValidationError("queue", "backoff", ErrInvalidValue)
	}
	return nil
}
