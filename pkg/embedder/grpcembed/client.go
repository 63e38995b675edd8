// Package grpcembed implements embedder.Provider over a gRPC connection to
// an embedding sidecar, mirroring the teacher's GRPCLLMClient
// (pkg/agent/llm_grpc.go) and pkg/llm.Client connection-management pattern.
package grpcembed

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/hybridmem/memstore/pkg/embedder"
	"github.com/hybridmem/memstore/proto/embedv1"
)

// Provider implements embedder.Provider over a gRPC connection to the
// embedding service. Transport errors (deadline exceeded, unavailable) are
// wrapped as retryable; the service is expected to surface authentication
// and validation failures as gRPC status codes that are NOT retryable
// (InvalidArgument, Unauthenticated, PermissionDenied).
type Provider struct {
	conn   *grpc.ClientConn
	client embedv1.EmbeddingServiceClient
	model  string
}

// New dials addr (plaintext; the embedding sidecar is expected to run
// alongside the memory store, not across an untrusted network boundary)
// and returns a ready Provider for the named model.
func New(addr, model string) (*Provider, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client for %s: %w", addr, err)
	}
	return &Provider{
		conn:   conn,
		client: embedv1.NewEmbeddingServiceClient(conn),
		model:  model,
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
	if isRetryableStatus(err) {
		return embedder.Retryable(err)
	}
	return err
}

// Embed calls the single-text RPC.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embed(ctx, &embedv1.EmbedRequest{Text: text, Model: p.model})
	if err != nil {
		return nil, wrapErr(err)
	}
	return resp.GetVector(), nil
}

// EmbedBatch calls the batch RPC.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.EmbedBatch(ctx, &embedv1.EmbedBatchRequest{Texts: texts, Model: p.model})
	if err != nil {
		return nil, wrapErr(err)
	}
	out := make([][]float32, len(resp.GetEmbeddings()))
	for i, e := range resp.GetEmbeddings() {
		out[i] = e.GetVector()
	}
	return out, nil
}

// Ping performs the service's HealthCheck RPC.
func (p *Provider) Ping(ctx context.Context) error {
	resp, err := p.client.HealthCheck(ctx, &embedv1.HealthCheckRequest{Model: p.model})
	if err != nil {
		return wrapErr(err)
	}
	if !resp.GetHealthy() {
		return fmt.Errorf("embedding service reports unhealthy: %s", resp.GetError())
	}
	return nil
}
