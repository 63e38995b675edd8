// Package grpcllm implements llmclient.Provider over a gRPC connection to
// an LLM completion sidecar, mirroring pkg/agent/llm_grpc.go's connection
// handling adapted from streaming Generate to a single Complete call.
package grpcllm

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/hybridmem/memstore/pkg/llmclient"
	"github.com/hybridmem/memstore/proto/llmv1"
)

// Provider implements llmclient.Provider over gRPC.
type Provider struct {
	conn   *grpc.ClientConn
	client llmv1.LLMServiceClient
}

// New dials addr (plaintext, sidecar deployment assumed) and returns a
// ready Provider.
func New(addr string) (*Provider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client for %s: %w", addr, err)
	}
	return &Provider{
		conn:   conn,
		client: llmv1.NewLLMServiceClient(conn),
	}, nil
}

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	return p.conn.Close()
}

func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return llmclient.Retryable(err)
	}
	switch st.Code() {
	case codes.ResourceExhausted, codes.DeadlineExceeded, codes.Unavailable, codes.Aborted:
		return llmclient.Retryable(err)
	default:
		return err
	}
}

// Complete calls the sidecar's Complete RPC.
func (p *Provider) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	resp, err := p.client.Complete(ctx, &llmv1.CompleteRequest{
		SystemPrompt:   req.SystemPrompt,
		UserPrompt:     req.UserPrompt,
		Model:          req.Model,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
		ResponseFormat: req.ResponseFormat,
	})
	if err != nil {
		return llmclient.Response{}, wrapErr(err)
	}
	return llmclient.Response{
		Content:          resp.GetContent(),
		PromptTokens:     resp.GetPromptTokens(),
		CompletionTokens: resp.GetCompletionTokens(),
		FinishReason:     resp.GetFinishReason(),
	}, nil
}

// Ping performs the sidecar's HealthCheck RPC.
func (p *Provider) Ping(ctx context.Context) error {
	resp, err := p.client.HealthCheck(ctx, &llmv1.HealthCheckRequest{})
	if err != nil {
		return wrapErr(err)
	}
	if !resp.GetHealthy() {
		return fmt.Errorf("LLM service reports unhealthy: %s", resp.GetError())
	}
	return nil
}
