package config

import "time"

// RetentionConfig controls background data retention and cleanup behavior.
type RetentionConfig struct {
	// FailedJobTTL is the maximum age of terminal FAILED jobs before they
	// are purged. Re-ingestion is required to retry past this point anyway
	// (see spec: jobs exceeding max_attempts are not auto-reenqueued).
	FailedJobTTL time.Duration `yaml:"failed_job_ttl"`

	// DoneJobTTL is the maximum age of terminal DONE jobs before they are
	// purged; kept briefly for debugging, then reclaimed.
	DoneJobTTL time.Duration `yaml:"done_job_ttl"`

	// OrphanedEvidenceTTL is loaded and validated but not read by the
	// cleanup service: EventEvidence carries no timestamp, so evidence rows
	// whose parent event no longer exists are purged on every pass
	// regardless of age. Cascade delete handles the normal case.
	OrphanedEvidenceTTL time.Duration `yaml:"orphaned_evidence_ttl"`

	// CleanupInterval is how often the cleanup loop runs.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		FailedJobTTL:        30 * 24 * time.Hour,
		DoneJobTTL:          7 * 24 * time.Hour,
		OrphanedEvidenceTTL: 1 * time.Hour,
		CleanupInterval:     12 * time.Hour,
	}
}
