package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"goa.design/plexus/envelope"
)

// TestSend_BufferPolicyThrottlesConcurrentSends proves WithBufferPolicy's
// semaphore (SPEC_FULL §B) actually gates send: with the single slot held
// externally, send must block until it is released, rather than writing
// straight through to a channel with spare capacity.
func TestSend_BufferPolicyThrottlesConcurrentSends(t *testing.T) {
	r := &Router{sem: semaphore.NewWeighted(1)}
	out := make(chan envelope.Item, 4)

	require.NoError(t, r.sem.Acquire(context.Background(), 1))

	sendDone := make(chan bool, 1)
	go func() {
		sendDone <- r.send(context.Background(), out, envelope.Done{})
	}()

	select {
	case <-sendDone:
		t.Fatal("send proceeded while the buffer policy semaphore was fully held")
	case <-time.After(50 * time.Millisecond):
	}

	r.sem.Release(1)

	select {
	case ok := <-sendDone:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send did not proceed once the semaphore was released")
	}
	assert.Len(t, out, 1)
}

// TestSend_HonorsCancellationWhileBlockedOnSemaphore proves send returns
// promptly and reports failure when ctx is cancelled while parked on
// sem.Acquire, rather than hanging until the slot frees up.
func TestSend_HonorsCancellationWhileBlockedOnSemaphore(t *testing.T) {
	r := &Router{sem: semaphore.NewWeighted(1)}
	out := make(chan envelope.Item, 4)

	require.NoError(t, r.sem.Acquire(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	sendDone := make(chan bool, 1)
	go func() {
		sendDone <- r.send(ctx, out, envelope.Done{})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-sendDone:
		assert.False(t, ok, "send must report failure when ctx is cancelled while blocked on sem.Acquire")
	case <-time.After(time.Second):
		t.Fatal("send did not return after context cancellation")
	}
	assert.Len(t, out, 0)
}
