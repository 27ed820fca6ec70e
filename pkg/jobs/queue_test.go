package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	var seen atomic.Int32
	p := NewPool("test", func(ctx context.Context, job Job) error {
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, 1, job.Attempt)
		seen.Add(1)
		return nil
	}, Options{Workers: 2})
	p.Start(context.Background())
	defer p.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(Job{Kind: "noop"}))
	}

	require.Eventually(t, func() bool { return p.Stats().Succeeded == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), seen.Load())
}

func TestPoolRetriesThenGivesUp(t *testing.T) {
	var attempts atomic.Int32
	p := NewPool("flaky", func(ctx context.Context, job Job) error {
		attempts.Add(1)
		return errors.New("upstream down")
	}, Options{Retries: 2, Backoff: time.Millisecond})
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Submit(Job{Kind: "import"}))

	require.Eventually(t, func() bool { return p.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, uint64(2), p.Stats().Retried)
}

func TestPoolRecoversOnRetry(t *testing.T) {
	p := NewPool("recovering", func(ctx context.Context, job Job) error {
		if job.Attempt < 2 {
			return errors.New("timeout")
		}
		return nil
	}, Options{Retries: 3, Backoff: time.Millisecond})
	p.Start(context.Background())
	defer p.Stop()

	require.NoError(t, p.Submit(Job{}))

	require.Eventually(t, func() bool { return p.Stats().Succeeded == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), p.Stats().Retried)
	assert.Zero(t, p.Stats().Failed)
}

func TestPoolSubmitRequiresRunning(t *testing.T) {
	p := NewPool("idle", func(context.Context, Job) error { return nil }, Options{})
	assert.ErrorIs(t, p.Submit(Job{}), ErrNotRunning)

	p.Start(context.Background())
	p.Stop()
	assert.ErrorIs(t, p.Submit(Job{}), ErrNotRunning)
}

func TestPoolSubmitReportsFullBacklog(t *testing.T) {
	release := make(chan struct{})
	p := NewPool("busy", func(ctx context.Context, job Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, Options{Workers: 1, Capacity: 1})
	p.Start(context.Background())
	defer p.Stop()
	defer close(release)

	require.NoError(t, p.Submit(Job{}))
	require.Eventually(t, func() bool { return p.Stats().Pending == 0 }, time.Second, time.Millisecond)
	require.NoError(t, p.Submit(Job{}))
	assert.ErrorIs(t, p.Submit(Job{}), ErrFull)
}
