package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodic_RunsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	p := NewPeriodic("test", 5*time.Millisecond, func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestPeriodic_FailedPassDoesNotStopWorker(t *testing.T) {
	var calls atomic.Int32
	p := NewPeriodic("failing", 5*time.Millisecond, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("store unavailable")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
}
