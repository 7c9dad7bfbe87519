package humanoid

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckarabey/attendbot/internal/config"
)

func pacingConfig() config.HumanoidConfig {
	return config.HumanoidConfig{
		Enabled:        true,
		KeyDelayMin:    50 * time.Millisecond,
		KeyDelayMax:    150 * time.Millisecond,
		ThinkChance:    0.1,
		ThinkPauseMin:  200 * time.Millisecond,
		ThinkPauseMax:  500 * time.Millisecond,
		ClickPauseMin:  200 * time.Millisecond,
		ClickPauseMax:  800 * time.Millisecond,
		ReadingPerItem: 400 * time.Millisecond,
	}
}

func TestKeyDelayWithinBounds(t *testing.T) {
	b := New(pacingConfig(), WithRand(rand.New(rand.NewSource(1))))

	for i := 0; i < 1000; i++ {
		d := b.KeyDelay()
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		// Upper bound includes a possible think pause.
		assert.LessOrEqual(t, d, 650*time.Millisecond)
	}
}

func TestKeyDelaySometimesThinks(t *testing.T) {
	b := New(pacingConfig(), WithRand(rand.New(rand.NewSource(7))))

	long := 0
	for i := 0; i < 1000; i++ {
		if b.KeyDelay() > 150*time.Millisecond {
			long++
		}
	}
	// ThinkChance is 0.1; with 1000 samples the count should land well inside
	// this window for any seed.
	assert.Greater(t, long, 30)
	assert.Less(t, long, 300)
}

func TestDisabledBehaviorIsInstant(t *testing.T) {
	cfg := pacingConfig()
	cfg.Enabled = false
	slept := false
	b := New(cfg, WithSleeper(func(ctx context.Context, d time.Duration) error {
		slept = true
		return nil
	}))

	assert.Zero(t, b.KeyDelay())
	require.NoError(t, b.ClickPause(context.Background()))
	require.NoError(t, b.ReadingPause(context.Background(), 4))
	assert.False(t, slept)
}

func TestClickPauseRecordsBoundedSleep(t *testing.T) {
	var got time.Duration
	b := New(pacingConfig(),
		WithRand(rand.New(rand.NewSource(3))),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			got = d
			return nil
		}))

	require.NoError(t, b.ClickPause(context.Background()))
	assert.GreaterOrEqual(t, got, 200*time.Millisecond)
	assert.LessOrEqual(t, got, 800*time.Millisecond)
}

func TestReadingPauseScalesWithItems(t *testing.T) {
	var got time.Duration
	b := New(pacingConfig(),
		WithRand(rand.New(rand.NewSource(3))),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			got = d
			return nil
		}))

	require.NoError(t, b.ReadingPause(context.Background(), 3))
	assert.GreaterOrEqual(t, got, 1200*time.Millisecond)
	assert.LessOrEqual(t, got, 1800*time.Millisecond)
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
