package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_RunsEveryJobWithinLimit(t *testing.T) {
	const jobs = 12
	var running, peak atomic.Int32
	results := make([]int, jobs)

	err := NewWorker(3, nil).Run(context.Background(), jobs, func(_ context.Context, i int) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		results[i] = i * i
		running.Add(-1)
	})
	require.NoError(t, err)

	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestWorker_ZeroJobs(t *testing.T) {
	called := false
	err := NewWorker(2, nil).Run(context.Background(), 0, func(context.Context, int) { called = true })
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestWorker_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	err := NewWorker(1, nil).Run(ctx, 5, func(context.Context, int) { calls.Add(1) })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}
