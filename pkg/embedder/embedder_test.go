package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	embedCalls int
	failTimes  int
	permanent  bool
	pingErr    error
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	if f.failTimes > 0 {
		f.failTimes--
		if f.permanent {
			return nil, errors.New("bad request")
		}
		return nil, Retryable(errors.New("rate limited"))
	}
	return []float32{1, 2, 3}, nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *fakeProvider) Ping(ctx context.Context) error {
	return f.pingErr
}

func testConfig() Config {
	return Config{
		Dims:            3,
		MaxBatchSize:    2,
		RetryBase:       time.Millisecond,
		RetryMultiplier: 2,
		RetryMaxElapsed: 100 * time.Millisecond,
	}
}

func TestClient_Embed_RetriesTransient(t *testing.T) {
	fp := &fakeProvider{failTimes: 2}
	c := NewClient(fp, testConfig())

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
	assert.Equal(t, 3, fp.embedCalls)
}

func TestClient_Embed_PermanentErrorNoRetry(t *testing.T) {
	fp := &fakeProvider{failTimes: 1, permanent: true}
	c := NewClient(fp, testConfig())

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, 1, fp.embedCalls)

	var ee *EmbeddingError
	require.ErrorAs(t, err, &ee)
}

func TestClient_EmbedBatch_SplitsByMaxBatchSize(t *testing.T) {
	fp := &fakeProvider{}
	c := NewClient(fp, testConfig())

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, vecs, 5)
}

func TestClient_Health(t *testing.T) {
	fp := &fakeProvider{}
	c := NewClient(fp, testConfig())

	status := c.Health(context.Background(), time.Second)
	assert.True(t, status.Healthy)
}

func TestClient_Health_Unhealthy(t *testing.T) {
	fp := &fakeProvider{pingErr: errors.New("down")}
	c := NewClient(fp, testConfig())

	status := c.Health(context.Background(), time.Second)
	assert.False(t, status.Healthy)
	assert.Equal(t, "down", status.Error)
}
