// Package llmclient provides a retrying, non-streaming completion client
// used by the event extractor and entity resolver, which need a single
// structured-JSON response rather than the token-streaming chat interface
// the teacher's pkg/agent/pkg/llm packages were built around.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Request is a single non-streaming completion call.
type Request struct {
	SystemPrompt   string
	UserPrompt     string
	Model          string
	Temperature    float32
	MaxTokens      int32
	ResponseFormat string // "json_object" to request constrained JSON output
}

// Response is the model's raw text output plus usage accounting.
type Response struct {
	Content          string
	PromptTokens     int32
	CompletionTokens int32
	FinishReason     string
}

// Provider is implemented by a concrete LLM transport (gRPC sidecar,
// in-process fake for tests).
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Ping(ctx context.Context) error
}

// RetryableError marks a Provider error as eligible for retry.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError, or returns nil if err is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// LLMError is returned once retries are exhausted or a non-retryable error
// is encountered.
type LLMError struct {
	Op  string
	Err error
}

func (e *LLMError) Error() string { return fmt.Sprintf("llmclient: %s: %v", e.Op, e.Err) }
func (e *LLMError) Unwrap() error { return e.Err }

// Config controls retry behavior.
type Config struct {
	RetryBase       time.Duration
	RetryMultiplier float64
	RetryMaxElapsed time.Duration
}

// Client wraps a Provider with exponential backoff retry, grounded on the
// same pattern as embedder.Client: the teacher retries nothing at the LLM
// layer (pkg/llm/client.go streams until EOF or error), so retry semantics
// here are adapted from evalgo-org-eve's worker retry loop rather than
// copied verbatim from the teacher.
type Client struct {
	provider Provider
	cfg      Config
}

// NewClient constructs a Client over provider with the given retry config.
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

// Complete issues req, retrying transient failures.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	var resp Response
	op := func() error {
		r, err := c.provider.Complete(ctx, req)
		if err != nil {
			var re *RetryableError
			if errors.As(err, &re) {
				return re
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, c.backoffPolicy(ctx)); err != nil {
		return Response{}, &LLMError{Op: "complete", Err: err}
	}
	return resp, nil
}

// HealthStatus is the result of a Health probe.
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Error   string
}

// Health performs a synthetic ping with a short timeout.
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
