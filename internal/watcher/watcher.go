// File: internal/watcher/watcher.go
// Description: Monitors a messaging web client for incoming attendance-form
// links and feeds each new supported link to the processing pipeline.
package watcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ckarabey/attendbot/internal/browser"
	"github.com/ckarabey/attendbot/internal/config"
	"github.com/ckarabey/attendbot/internal/forms"
)

// Processor handles one discovered form URL. Implemented by the orchestrator.
type Processor interface {
	ProcessForm(ctx context.Context, url string) (*forms.Submission, error)
}

// Watcher polls the chat page's DOM for form links. Each URL is processed at
// most once per watcher lifetime; processing failures do not stop the watch.
type Watcher struct {
	cfg     config.WatcherConfig
	pager   browser.Pager
	intel   *forms.Intelligence
	proc    Processor
	limiter *rate.Limiter
	log     *zap.Logger

	seen map[string]struct{}
}

// New creates a watcher. The poll interval paces DOM reads through a token
// bucket so a slow pipeline run never causes a burst of catch-up polls.
func New(cfg config.WatcherConfig, pager browser.Pager, intel *forms.Intelligence, proc Processor, logger *zap.Logger) *Watcher {
	return &Watcher{
		cfg:     cfg,
		pager:   pager,
		intel:   intel,
		proc:    proc,
		limiter: rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		log:     logger.Named("watcher"),
		seen:    make(map[string]struct{}),
	}
}

// Run opens the chat page and polls until the context is canceled. The first
// poll typically requires the operator to complete the client's QR login in
// the visible browser window.
func (w *Watcher) Run(ctx context.Context) error {
	page, err := w.pager.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open chat tab: %w", err)
	}
	defer page.Close(context.WithoutCancel(ctx))

	if err := page.Navigate(ctx, w.cfg.ChatURL); err != nil {
		return fmt.Errorf("failed to open chat client: %w", err)
	}
	w.log.Info("Watching chat for form links.",
		zap.String("url", w.cfg.ChatURL),
		zap.Duration("poll_interval", w.cfg.PollInterval))

	for {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := w.poll(ctx, page); err != nil {
			w.log.Warn("Poll failed, will retry.", zap.Error(err))
		}
	}
}

// poll reads the page once and dispatches any new supported links.
func (w *Watcher) poll(ctx context.Context, page browser.Page) error {
	content, err := page.Content(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chat content: %w", err)
	}

	for _, link := range ExtractLinks(content) {
		if _, dup := w.seen[link]; dup {
			continue
		}
		if w.intel.IdentifyProvider(link) == nil {
			continue
		}
		// Mark before processing: a failed attempt is not retried, the
		// operator handles it from the notification instead.
		w.seen[link] = struct{}{}

		w.log.Info("New form link detected.", zap.String("url", link))
		if _, err := w.proc.ProcessForm(ctx, link); err != nil {
			w.log.Error("Form processing failed.", zap.String("url", link), zap.Error(err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
