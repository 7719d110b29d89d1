package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New("alerts", append([]Option{WithClock(clock.Now)}, opts...)...), clock
}

func TestNewBreakerIsClosed(t *testing.T) {
	b, _ := newBreaker()
	assert.Equal(t, "alerts", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestOpensOnConsecutiveFailures(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(2))

	fallback, change := b.RecordFailure()
	assert.False(t, fallback)
	assert.Equal(t, StateChange{}, change)

	fallback, change = b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())
	assert.False(t, b.Allow())
}

func TestSuccessBreaksFailureRun(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	_, change := b.RecordFailure()

	assert.False(t, change.Opened)
	assert.False(t, b.IsOpen())
}

func TestCooldownLetsProbesThrough(t *testing.T) {
	b, clock := newBreaker(WithFailureThreshold(1), WithCooldown(time.Minute))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "cooldown elapsed")
}

func TestFailedProbeRestartsCooldown(t *testing.T) {
	b, clock := newBreaker(WithFailureThreshold(1), WithCooldown(time.Minute))
	b.RecordFailure()
	clock.Advance(time.Minute)
	require.True(t, b.Allow())

	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.False(t, change.Opened, "already open")
	assert.False(t, b.Allow())
}

func TestClosesAfterSuccessfulProbes(t *testing.T) {
	b, clock := newBreaker(WithFailureThreshold(1), WithSuccessThreshold(2), WithCooldown(time.Second))
	b.RecordFailure()
	clock.Advance(time.Second)

	primary, change := b.RecordSuccess()
	assert.False(t, primary)
	assert.False(t, change.Closed)

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestInvalidOptionsKeepDefaults(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0))
	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen(), "default threshold is five")
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestReset(t *testing.T) {
	b, _ := newBreaker(WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}
