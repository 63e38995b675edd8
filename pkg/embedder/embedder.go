// Package embedder provides a retrying, health-checked client over a
// pluggable embedding Provider, mirroring the teacher's pattern of a thin
// typed client wrapping a gRPC-backed capability (pkg/llm.Client) plus a
// dedicated health probe (pkg/mcp.HealthMonitor).
package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Provider is implemented by a concrete embedding transport (gRPC sidecar,
// in-process fake for tests). It has no retry logic of its own — Client
// supplies that uniformly regardless of provider.
type Provider interface {
	// Embed returns the embedding vector for one string.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Ping performs a lightweight, low-latency connectivity check.
	Ping(ctx context.Context) error
}

// RetryableError wraps a Provider error to mark it eligible for retry
// (rate limits, timeouts, transient transport failures). Errors not
// wrapped this way — authentication failures, bad requests — are treated
// as terminal.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError, or returns nil if err is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// EmbeddingError is returned once retries are exhausted or a non-retryable
// error is encountered.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embedder: %s: %v", e.Op, e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

// Config controls retry behavior and batching.
type Config struct {
	Dims            int
	MaxBatchSize    int
	RetryBase       time.Duration
	RetryMultiplier float64
	RetryMaxElapsed time.Duration
}

// Client wraps a Provider with exponential backoff retry and batch
// splitting, grounded on the teacher's pkg/llm.Client (typed wrapper around
// a provider connection) generalized for retry semantics absent from the
// teacher but present in other pack services (evalgo-org-eve's worker
// retry loops).
type Client struct {
	provider Provider
	cfg      Config
}

// NewClient constructs a Client over provider with the given retry/batch config.
func NewClient(provider Provider, cfg Config) *Client {
	return &Client{provider: provider, cfg: cfg}
}

func (c *Client) backoffPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBase
	b.Multiplier = c.cfg.RetryMultiplier
	b.MaxElapsedTime = c.cfg.RetryMaxElapsed
	return backoff.WithContext(b, ctx)
}

// Embed embeds a single text, retrying on RetryableError with exponential
// backoff and jitter, bounded by RetryMaxElapsed. Non-retryable errors
// (authentication, bad request) fail immediately.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	op := func() error {
		v, err := c.provider.Embed(ctx, text)
		if err != nil {
			var re *RetryableError
			if errors.As(err, &re) {
				return re
			}
			return backoff.Permanent(err)
		}
		vec = v
		return nil
	}

	if err := backoff.Retry(op, c.backoffPolicy(ctx)); err != nil {
		return nil, &EmbeddingError{Op: "embed", Err: err}
	}
	return vec, nil
}

// EmbedBatch embeds texts, splitting internally into MaxBatchSize pieces
// and retrying each sub-batch independently so that one transient failure
// doesn't force re-embedding of the whole request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	batchSize := c.cfg.MaxBatchSize
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		sub := texts[start:end]

		var vecs [][]float32
		op := func() error {
			v, err := c.provider.EmbedBatch(ctx, sub)
			if err != nil {
				var re *RetryableError
				if errors.As(err, &re) {
					return re
				}
				return backoff.Permanent(err)
			}
			vecs = v
			return nil
		}

		if err := backoff.Retry(op, c.backoffPolicy(ctx)); err != nil {
			return nil, &EmbeddingError{Op: "embed_batch", Err: err}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// HealthStatus is the result of a Health probe.
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Error   string
}

// Health calls Provider.Ping with a short timeout and reports
// healthy/unhealthy with latency, matching the teacher's HealthMonitor
// pattern in pkg/mcp/health.go. It does not issue an embedding request.
func (c *Client) Health(ctx context.Context, timeout time.Duration) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := c.provider.Ping(ctx)
	latency := time.Since(start)
	if err != nil {
		return HealthStatus{Healthy: false, Latency: latency, Error: err.Error()}
	}
	return HealthStatus{Healthy: true, Latency: latency}
}
