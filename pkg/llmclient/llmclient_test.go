package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls     int
	failTimes int
	permanent bool
	resp      Response
	pingErr   error
}

func (f *fakeProvider) Complete(ctx context.Context, req Request) (Response, error) {
	f.calls++
	if f.failTimes > 0 {
		f.failTimes--
		if f.permanent {
			return Response{}, errors.New("invalid request")
		}
		return Response{}, Retryable(errors.New("rate limited"))
	}
	return f.resp, nil
}

func (f *fakeProvider) Ping(ctx context.Context) error { return f.pingErr }

func testConfig() Config {
	return Config{RetryBase: time.Millisecond, RetryMultiplier: 2, RetryMaxElapsed: 100 * time.Millisecond}
}

func TestClient_Complete_RetriesTransient(t *testing.T) {
	fp := &fakeProvider{failTimes: 2, resp: Response{Content: `{"events":[]}`}}
	c := NewClient(fp, testConfig())

	resp, err := c.Complete(context.Background(), Request{UserPrompt: "extract"})
	require.NoError(t, err)
	assert.Equal(t, `{"events":[]}`, resp.Content)
	assert.Equal(t, 3, fp.calls)
}

func TestClient_Complete_PermanentErrorNoRetry(t *testing.T) {
	fp := &fakeProvider{failTimes: 1, permanent: true}
	c := NewClient(fp, testConfig())

	_, err := c.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, fp.calls)

	var le *LLMError
	require.ErrorAs(t, err, &le)
}

func TestClient_Health(t *testing.T) {
	fp := &fakeProvider{}
	c := NewClient(fp, testConfig())
	status := c.Health(context.Background(), time.Second)
	assert.True(t, status.Healthy)
}
