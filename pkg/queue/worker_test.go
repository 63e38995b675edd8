package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hybridmem/memstore/pkg/config"
)

func TestWorker_PollIntervalStaysWithinJitterBounds(t *testing.T) {
	cfg := config.DefaultQueueConfig()
	w := &Worker{cfg: cfg}

	for i := 0; i < 50; i++ {
		d := w.pollInterval()
		assert.GreaterOrEqual(t, d, cfg.PollInterval-cfg.PollIntervalJitter)
		assert.LessOrEqual(t, d, cfg.PollInterval+cfg.PollIntervalJitter)
	}
}

func TestWorker_PollIntervalWithoutJitterIsExactBase(t *testing.T) {
	cfg := config.DefaultQueueConfig()
	cfg.PollIntervalJitter = 0
	w := &Worker{cfg: cfg}
	assert.Equal(t, cfg.PollInterval, w.pollInterval())
}

func TestWorker_HealthReflectsSetStatus(t *testing.T) {
	w := &Worker{id: "worker-0", status: WorkerStatusIdle, lastActivity: time.Now()}
	w.setStatus(WorkerStatusWorking, "job-123")
	h := w.Health()
	assert.Equal(t, "working", h.Status)
	assert.Equal(t, "job-123", h.CurrentJobID)
}
