// File: internal/humanoid/behavior.go
// Description: Named randomized delay policies for human-paced browser input.
// The bounds are business logic, not incidental sleeps: interaction timing has
// to stay inside the envelope that form providers' bot heuristics accept.
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/ckarabey/attendbot/internal/config"
)

// Behavior produces paced delays according to a configured persona.
// All sleeps respect context cancellation.
type Behavior struct {
	cfg config.HumanoidConfig

	mu  sync.Mutex
	rng *rand.Rand

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Behavior.
type Option func(*Behavior)

// WithRand injects a deterministic random source. Tests only.
func WithRand(rng *rand.Rand) Option {
	return func(b *Behavior) { b.rng = rng }
}

// WithSleeper replaces the sleep implementation. Tests only.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(b *Behavior) { b.sleep = fn }
}

// New creates a Behavior with the given pacing configuration.
func New(cfg config.HumanoidConfig, opts ...Option) *Behavior {
	b := &Behavior{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: Sleep,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Sleep pauses for d, returning early with the context error on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// KeyDelay returns the pause before the next keystroke. Most keys come at the
// configured base cadence; occasionally the typist "thinks" and the pause is
// drawn from the longer think-pause range instead.
func (b *Behavior) KeyDelay() time.Duration {
	if !b.cfg.Enabled {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.between(b.cfg.KeyDelayMin, b.cfg.KeyDelayMax)
	if b.rng.Float64() < b.cfg.ThinkChance {
		d += b.between(b.cfg.ThinkPauseMin, b.cfg.ThinkPauseMax)
	}
	return d
}

// ClickPause blocks for the pause surrounding a click (hover, settle).
func (b *Behavior) ClickPause(ctx context.Context) error {
	if !b.cfg.Enabled {
		return ctx.Err()
	}
	b.mu.Lock()
	d := b.between(b.cfg.ClickPauseMin, b.cfg.ClickPauseMax)
	b.mu.Unlock()
	return b.sleep(ctx, d)
}

// ReadingPause blocks for the time a person would take to scan a form with the
// given number of visible items before starting to type.
func (b *Behavior) ReadingPause(ctx context.Context, items int) error {
	if !b.cfg.Enabled || items <= 0 {
		return ctx.Err()
	}
	b.mu.Lock()
	base := time.Duration(items) * b.cfg.ReadingPerItem
	// Up to 50% jitter so repeated forms don't read in identical time.
	jitter := time.Duration(b.rng.Int63n(int64(base)/2 + 1))
	b.mu.Unlock()
	return b.sleep(ctx, base+jitter)
}

// between returns a uniformly random duration in [min, max].
// Callers must hold b.mu.
func (b *Behavior) between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(b.rng.Int63n(int64(max-min)+1))
}
