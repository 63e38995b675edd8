package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay_DoublesPerAttemptAndCapsAtMax(t *testing.T) {
	cfg := backoffConfig{Base: 1 * time.Second, Max: 10 * time.Second}

	d1 := backoffDelay(cfg, 1)
	assert.InDelta(t, float64(1*time.Second), float64(d1), float64(300*time.Millisecond))

	d2 := backoffDelay(cfg, 2)
	assert.InDelta(t, float64(2*time.Second), float64(d2), float64(600*time.Millisecond))

	d5 := backoffDelay(cfg, 5)
	assert.LessOrEqual(t, d5, cfg.Max)
	assert.Greater(t, d5, cfg.Max/2)
}

func TestBackoffDelay_TreatsNonPositiveAttemptsAsOne(t *testing.T) {
	cfg := backoffConfig{Base: 1 * time.Second, Max: 10 * time.Second}
	d0 := backoffDelay(cfg, 0)
	d1 := backoffDelay(cfg, 1)
	assert.InDelta(t, float64(d1), float64(d0), float64(300*time.Millisecond))
}
