// -- cmd/app.go --
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/browser"
	"github.com/ckarabey/attendbot/internal/config"
	"github.com/ckarabey/attendbot/internal/forms"
	"github.com/ckarabey/attendbot/internal/humanoid"
	"github.com/ckarabey/attendbot/internal/notify"
	"github.com/ckarabey/attendbot/internal/orchestrator"
	"github.com/ckarabey/attendbot/internal/ratelimit"
	"github.com/ckarabey/attendbot/internal/store"
)

// app bundles the long-lived components behind the fill and watch commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	browser *browser.Manager
	store   *store.Store
	intel   *forms.Intelligence
	orch    *orchestrator.Orchestrator
}

// newApp wires the full pipeline: browser, submission log, notification
// sinks, rate limiter and orchestrator. Launches Chrome eagerly so a broken
// environment fails here rather than mid-form.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	mgr, err := browser.NewManager(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		mgr.Close(ctx)
		return nil, err
	}

	sinks := []notify.Notifier{notify.NewLogNotifier(logger)}
	if cfg.Notify.HasTelegram() {
		sinks = append(sinks, notify.NewTelegramNotifier(cfg.Notify))
	}
	notifier := notify.NewMulti(logger, sinks...)

	intel := forms.NewIntelligence(logger, forms.DefaultPlugins(cfg.Forms, logger)...)
	limiter := ratelimit.NewLimiter(cfg.Rate, logger)
	behavior := humanoid.New(cfg.Browser.Humanoid)

	orch := orchestrator.New(cfg.Forms, cfg.User, mgr, intel,
		limiter, st, notifier, behavior, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		browser: mgr,
		store:   st,
		intel:   intel,
		orch:    orch,
	}, nil
}

// Close releases the browser and the submission log.
func (a *app) Close(ctx context.Context) {
	if err := a.browser.Close(ctx); err != nil {
		a.logger.Warn("Failed to close browser.", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close submission log.", zap.Error(err))
	}
}
