package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func collect(t *testing.T, n int) (func(Completion), func() []Completion) {
	t.Helper()
	var mu sync.Mutex
	var got []Completion
	done := make(chan struct{})
	record := func(c Completion) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
		if len(got) == n {
			close(done)
		}
	}
	wait := func() []Completion {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for completions")
		}
		mu.Lock()
		defer mu.Unlock()
		return append([]Completion(nil), got...)
	}
	return record, wait
}

func TestQueueRunsEverySubmission(t *testing.T) {
	var runs atomic.Int32
	record, wait := collect(t, 10)
	q := NewQueue(func(_ context.Context, _ string) error {
		runs.Add(1)
		return nil
	}, QueueOptions{Workers: 3, OnComplete: record}, zaptest.NewLogger(t))
	q.Start(context.Background())

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Submit(string(rune('a'+i))))
	}

	got := wait()
	assert.Len(t, got, 10)
	assert.EqualValues(t, 10, runs.Load())

	q.Close()
	q.Wait()
}

func TestQueueReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	record, wait := collect(t, 1)
	q := NewQueue(func(context.Context, string) error { return boom }, QueueOptions{OnComplete: record}, nil)
	q.Start(context.Background())

	require.NoError(t, q.Submit("q1"))
	got := wait()
	require.Len(t, got, 1)
	assert.Equal(t, "q1", got[0].ID)
	assert.ErrorIs(t, got[0].Err, boom)

	q.Close()
	q.Wait()
}

func TestQueueSubmitDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue(func(context.Context, string) error {
		<-release
		return nil
	}, QueueOptions{Workers: 1}, nil)
	q.Start(context.Background())

	for i := 0; i < 100; i++ {
		require.NoError(t, q.Submit("id"))
	}
	assert.GreaterOrEqual(t, q.Len(), 99)

	close(release)
	q.Close()
	q.Wait()
	assert.Equal(t, 0, q.Len())
}

func TestQueueCloseDrainsAndRejects(t *testing.T) {
	var runs atomic.Int32
	q := NewQueue(func(context.Context, string) error {
		runs.Add(1)
		return nil
	}, QueueOptions{Workers: 2}, nil)

	require.NoError(t, q.Submit("a"))
	require.NoError(t, q.Submit("b"))
	q.Start(context.Background())
	q.Close()
	q.Wait()

	assert.EqualValues(t, 2, runs.Load())
	assert.ErrorIs(t, q.Submit("c"), ErrQueueClosed)
	q.Close()
}

func TestQueueInFlightRunSurvivesCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var runErr error
	record, wait := collect(t, 1)

	q := NewQueue(func(ctx context.Context, _ string) error {
		close(started)
		<-release
		runErr = ctx.Err()
		return nil
	}, QueueOptions{Workers: 1, OnComplete: record}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)
	require.NoError(t, q.Submit("slow"))
	<-started

	cancel()
	close(release)
	wait()
	q.Wait()

	assert.NoError(t, runErr)
}
