package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatchRunsOnLoop(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(cancel)

	done := make(chan struct{})
	require.True(t, l.TryDispatch(func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatched event never ran")
	}
}

func TestTryDispatchAfterStop(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	cancel()
	<-l.Done()

	require.False(t, l.TryDispatch(func() {}))
}

func TestTryDispatchBeforeRunQueuesWhileRoomLeft(t *testing.T) {
	l := NewLoop()
	for i := 0; i < cap(l.events); i++ {
		require.True(t, l.TryDispatch(func() {}))
	}
	// Queue full and the loop not started: the closure is refused, not lost
	// silently.
	require.False(t, l.TryDispatch(func() {}))
}
