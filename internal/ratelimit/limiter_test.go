// File: internal/ratelimit/limiter_test.go
package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/config"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testRateConfig() config.RateConfig {
	return config.RateConfig{
		MinDelay:      60 * time.Second,
		MaxPerHour:    10,
		BreakAfterN:   5,
		BreakDuration: 5 * time.Minute,
	}
}

func newTestLimiter(t *testing.T, clock *fakeClock) *Limiter {
	t.Helper()
	return NewLimiter(testRateConfig(), zap.NewNop(),
		WithClock(clock.Now),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			clock.Advance(d)
			return ctx.Err()
		}))
}

func TestFreshLimiterProceeds(t *testing.T) {
	l := newTestLimiter(t, newFakeClock())
	ok, wait := l.CanProceed()
	assert.True(t, ok)
	assert.Zero(t, wait)
}

func TestMinDelayEnforced(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	l.RecordSubmission()

	ok, wait := l.CanProceed()
	assert.False(t, ok)
	assert.Equal(t, 60*time.Second, wait)

	clock.Advance(30 * time.Second)
	ok, wait = l.CanProceed()
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	clock.Advance(30 * time.Second)
	ok, _ = l.CanProceed()
	assert.True(t, ok)
}

func TestHourlyCap(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	// Ten submissions spaced two minutes apart: stays under the break
	// threshold's effect on pacing but fills the hourly window.
	for i := 0; i < 10; i++ {
		l.RecordSubmission()
		l.ResetConsecutive()
		clock.Advance(2 * time.Minute)
	}

	ok, wait := l.CanProceed()
	assert.False(t, ok)
	// The oldest entry is 20 minutes old; the window opens in 40.
	assert.Equal(t, 40*time.Minute, wait)

	clock.Advance(wait + time.Second)
	ok, _ = l.CanProceed()
	assert.True(t, ok)
}

func TestHourlyWindowPrunesOnRead(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 10; i++ {
		l.RecordSubmission()
		l.ResetConsecutive()
	}
	clock.Advance(61 * time.Minute)

	stats := l.Snapshot()
	assert.Zero(t, stats.SubmissionsLastHour)

	ok, _ := l.CanProceed()
	assert.True(t, ok)
}

func TestConsecutiveBreak(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 5; i++ {
		l.RecordSubmission()
		clock.Advance(90 * time.Second)
	}

	// Fifth consecutive submission makes the rest due; min-delay has already
	// elapsed so the rest is the binding constraint, counted from the last
	// submission.
	ok, wait := l.CanProceed()
	assert.False(t, ok)
	assert.Equal(t, 5*time.Minute-90*time.Second, wait)

	// The counter holds at the threshold for as long as the rest is owed.
	stats := l.Snapshot()
	assert.Equal(t, 5, stats.Consecutive)
	assert.False(t, stats.BreakUntil.IsZero())
}

func TestCounterClearsOnlyAfterRestServed(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 5; i++ {
		l.RecordSubmission()
	}

	clock.Advance(4 * time.Minute)
	ok, _ := l.CanProceed()
	assert.False(t, ok)
	assert.Equal(t, 5, l.Snapshot().Consecutive)

	clock.Advance(time.Minute)
	ok, _ = l.CanProceed()
	assert.True(t, ok)
	assert.Zero(t, l.Snapshot().Consecutive)
}

func TestResetConsecutiveClearsDueBreak(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 5; i++ {
		l.RecordSubmission()
	}
	clock.Advance(90 * time.Second)

	ok, _ := l.CanProceed()
	require.False(t, ok)

	// An explicit reset stands in for a genuine idle gap: the due rest is
	// cleared and only the ordinary constraints remain.
	l.ResetConsecutive()
	ok, _ = l.CanProceed()
	assert.True(t, ok)
}

func TestResetConsecutivePreventsBreak(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 4; i++ {
		l.RecordSubmission()
		clock.Advance(2 * time.Minute)
	}
	l.ResetConsecutive()
	l.RecordSubmission()
	clock.Advance(2 * time.Minute)

	ok, _ := l.CanProceed()
	assert.True(t, ok)
}

func TestBreakTakesPriorityOverMinDelay(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 5; i++ {
		l.RecordSubmission()
	}

	// Both constraints are active immediately after the run; the reported
	// wait is the break remainder, not the 60s floor.
	ok, wait := l.CanProceed()
	assert.False(t, ok)
	assert.Equal(t, 5*time.Minute, wait)
}

func TestWaitIfNeededAdvancesThroughSegments(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	for i := 0; i < 5; i++ {
		l.RecordSubmission()
	}

	// The fake sleeper advances the clock; the 5-minute break is consumed in
	// bounded segments.
	require.NoError(t, l.WaitIfNeeded(context.Background()))
	ok, _ := l.CanProceed()
	assert.True(t, ok)
}

func TestWaitIfNeededHonorsCancellation(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(testRateConfig(), zap.NewNop(), WithClock(clock.Now))

	l.RecordSubmission()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.WaitIfNeeded(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshot(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, clock)

	l.RecordSubmission()
	l.RecordSubmission()

	stats := l.Snapshot()
	assert.Equal(t, 2, stats.SubmissionsLastHour)
	assert.Equal(t, 2, stats.Consecutive)
	assert.Equal(t, clock.Now(), stats.LastSubmission)
	assert.True(t, stats.BreakUntil.IsZero())
}
