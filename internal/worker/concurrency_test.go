package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSemaphore() *ClientSemaphore {
	return NewClientSemaphore(&ConcurrencyConfig{
		MaxConcurrentJobs: 2,
		MaxPerClient:      1,
		JobTimeout:        time.Minute,
		QueueTimeout:      50 * time.Millisecond,
	})
}

func TestClientSemaphorePerClientLimit(t *testing.T) {
	sem := testSemaphore()
	ctx := context.Background()

	release, err := sem.Acquire(ctx, "client-a")
	require.NoError(t, err)
	assert.Equal(t, 1, sem.ActiveJobs("client-a"))

	_, err = sem.Acquire(ctx, "client-a")
	assert.Error(t, err, "second slot for the same client times out")
	assert.Equal(t, 1, sem.ActiveJobs("client-a"), "failed acquire leaves counters untouched")

	release()
	assert.Equal(t, 0, sem.ActiveJobs("client-a"))

	release2, err := sem.Acquire(ctx, "client-a")
	require.NoError(t, err, "released slot is reusable")
	release2()
}

func TestClientSemaphoreGlobalLimit(t *testing.T) {
	sem := testSemaphore()
	ctx := context.Background()

	releaseA, err := sem.Acquire(ctx, "client-a")
	require.NoError(t, err)
	releaseB, err := sem.Acquire(ctx, "client-b")
	require.NoError(t, err)

	_, err = sem.Acquire(ctx, "client-c")
	assert.Error(t, err, "global limit of two blocks a third client")

	releaseA()
	releaseC, err := sem.Acquire(ctx, "client-c")
	require.NoError(t, err)

	releaseB()
	releaseC()
}

func TestClientSemaphoreReleaseIsIdempotent(t *testing.T) {
	sem := testSemaphore()
	ctx := context.Background()

	release, err := sem.Acquire(ctx, "client-a")
	require.NoError(t, err)

	release()
	release()
	assert.Equal(t, 0, sem.ActiveJobs("client-a"))

	r1, err := sem.Acquire(ctx, "client-a")
	require.NoError(t, err)
	r2, err := sem.Acquire(ctx, "client-b")
	require.NoError(t, err, "double release must not free a phantom global slot")
	r1()
	r2()
}

func TestClientSemaphoreStats(t *testing.T) {
	sem := testSemaphore()
	release, err := sem.Acquire(context.Background(), "client-a")
	require.NoError(t, err)
	defer release()

	stats := sem.Stats()
	assert.Equal(t, 2, stats["maxConcurrentJobs"])
	assert.Equal(t, 1, stats["maxPerClient"])
	assert.Equal(t, 1, stats["activeTotal"])

	byClient, ok := stats["activeByClient"].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 1, byClient["client-a"])
}
