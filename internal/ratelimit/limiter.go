// File: internal/ratelimit/limiter.go
// Description: Submission pacing. Keeps automated submissions looking like a
// careful human: a hard floor between submissions, an hourly cap, and a long
// break after a run of consecutive submissions.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/config"
)

// maxWaitSegment bounds a single sleep so cancellation is honored promptly
// even for multi-minute waits.
const maxWaitSegment = 60 * time.Second

// Limiter tracks submission history and decides whether the next one may
// proceed. Safe for concurrent use; in practice one pipeline consults it at a
// time, but the watcher and an interactive fill session may share it.
type Limiter struct {
	cfg config.RateConfig
	log *zap.Logger

	mu             sync.Mutex
	lastSubmission time.Time
	hourWindow     []time.Time
	consecutive    int

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Limiter, primarily for tests.
type Option func(*Limiter)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleeper replaces the wait implementation.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

// NewLimiter creates a Limiter with empty history.
func NewLimiter(cfg config.RateConfig, logger *zap.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:   cfg,
		log:   logger.Named("ratelimit"),
		now:   time.Now,
		sleep: sleepCtx,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CanProceed reports whether a submission may start now, and if not, how long
// until it may. Constraints are checked in priority order: active break first,
// then the minimum inter-submission delay, then the hourly cap.
func (l *Limiter) CanProceed() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canProceedLocked(l.now())
}

func (l *Limiter) canProceedLocked(now time.Time) (bool, time.Duration) {
	// The forced rest is gated on the consecutive counter itself, not on a
	// timestamp armed in advance: the counter stays at the threshold for the
	// whole rest, and clears only once the rest has been served (or via an
	// explicit ResetConsecutive).
	if l.consecutive >= l.cfg.BreakAfterN {
		if rested := now.Sub(l.lastSubmission); rested < l.cfg.BreakDuration {
			return false, l.cfg.BreakDuration - rested
		}
		l.consecutive = 0
	}

	if !l.lastSubmission.IsZero() {
		if since := now.Sub(l.lastSubmission); since < l.cfg.MinDelay {
			return false, l.cfg.MinDelay - since
		}
	}

	l.pruneLocked(now)
	if len(l.hourWindow) >= l.cfg.MaxPerHour {
		// The window clears when its oldest entry ages past one hour.
		oldest := l.hourWindow[0]
		return false, oldest.Add(time.Hour).Sub(now)
	}

	return true, 0
}

// pruneLocked drops window entries older than one hour. Pruning happens on
// read so an idle limiter carries no timers.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	kept := l.hourWindow[:0]
	for _, t := range l.hourWindow {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.hourWindow = kept
}

// WaitIfNeeded blocks until a submission may proceed or the context is
// canceled. Waits are re-checked in bounded segments because the required
// delay can change while sleeping.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	for {
		ok, wait := l.CanProceed()
		if ok {
			return nil
		}

		segment := wait
		if segment > maxWaitSegment {
			segment = maxWaitSegment
		}
		l.log.Info("Rate limit active, waiting.",
			zap.Duration("remaining", wait), zap.Duration("segment", segment))

		if err := l.sleep(ctx, segment); err != nil {
			return fmt.Errorf("rate-limit wait aborted: %w", err)
		}
	}
}

// RecordSubmission registers a completed submission attempt: it stamps the
// last-submission time, appends to the hourly window, and bumps the
// consecutive counter. Reaching the break threshold is observed by
// CanProceed, not acted on here.
func (l *Limiter) RecordSubmission() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.lastSubmission = now
	l.hourWindow = append(l.hourWindow, now)
	l.consecutive++

	if l.consecutive >= l.cfg.BreakAfterN {
		l.log.Info("Consecutive-submission threshold reached, forced rest due.",
			zap.Int("consecutive", l.consecutive),
			zap.Duration("duration", l.cfg.BreakDuration))
	}
}

// ResetConsecutive clears the consecutive-submission counter, including a
// forced rest that is currently due. Called when a genuine idle gap breaks
// the run of automated submissions.
func (l *Limiter) ResetConsecutive() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.consecutive = 0
}

// Stats is a point-in-time snapshot of limiter state for status reporting.
// BreakUntil is derived from the counter and is zero when no rest is due.
type Stats struct {
	SubmissionsLastHour int
	Consecutive         int
	LastSubmission      time.Time
	BreakUntil          time.Time
}

// Snapshot returns the current limiter state. The hourly count reflects
// pruning at read time; the consecutive counter is reported as-is, so a due
// forced rest is visible as Consecutive >= the break threshold.
func (l *Limiter) Snapshot() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(l.now())
	stats := Stats{
		SubmissionsLastHour: len(l.hourWindow),
		Consecutive:         l.consecutive,
		LastSubmission:      l.lastSubmission,
	}
	if l.consecutive >= l.cfg.BreakAfterN {
		stats.BreakUntil = l.lastSubmission.Add(l.cfg.BreakDuration)
	}
	return stats
}
