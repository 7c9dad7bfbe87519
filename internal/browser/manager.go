// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/chromedp/chromedp"
	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/config"
	"github.com/ckarabey/attendbot/internal/humanoid"
)

// Manager owns the Chrome process and hands out tabs. The browser runs with a
// persistent user-data directory so authenticated sessions (e.g. a Microsoft
// account) survive restarts, and with flags that reduce automation fingerprints.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger
	human  *humanoid.Behavior

	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

// NewManager launches the browser. The returned manager must be closed to
// release the Chrome process; Close is safe on every exit path.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	profileDir, err := expandProfileDir(cfg.Browser.ProfileDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve browser profile dir: %w", err)
	}
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create browser profile dir: %w", err)
	}

	opts := allocatorOptions(cfg.Browser, profileDir)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)

	m := &Manager{
		cfg:         cfg,
		logger:      logger.Named("browser"),
		human:       humanoid.New(cfg.Browser.Humanoid),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		browserStop: browserStop,
	}

	// Start the browser process eagerly so launch failures surface here,
	// not on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		m.Close(ctx)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m.logger.Info("Browser launched",
		zap.Bool("headless", cfg.Browser.Headless),
		zap.String("profile_dir", profileDir))
	return m, nil
}

// NewPage opens a fresh tab with the stealth init script and timezone override
// applied, and returns its handle.
func (m *Manager) NewPage(ctx context.Context) (Page, error) {
	m.mu.Lock()
	if m.isClosed {
		m.mu.Unlock()
		return nil, fmt.Errorf("browser manager is closed")
	}
	m.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)

	t := newTab(tabCtx, tabCancel, m.cfg, m.human, m.logger)
	if err := t.initialize(ctx, m.cfg.Browser.Timezone); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to initialize tab: %w", err)
	}
	return t, nil
}

// Close shuts the browser down. Safe to call more than once.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.isClosed {
		m.mu.Unlock()
		return nil
	}
	m.isClosed = true
	m.mu.Unlock()

	m.logger.Debug("Closing browser.")

	// Graceful browser shutdown before tearing down the allocator.
	if err := chromedp.Cancel(m.browserCtx); err != nil {
		m.logger.Debug("Graceful browser cancel failed.", zap.Error(err))
	}
	m.browserStop()
	m.allocCancel()
	return nil
}

// expandProfileDir resolves a leading "~" in the configured profile path.
func expandProfileDir(dir string) (string, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", err
	}
	return expanded, nil
}

// allocatorOptions builds the Chrome launch flags. The anti-fingerprinting set
// mirrors what real attendance-form sessions survive on: no automation banner,
// no AutomationControlled blink feature, stable window placement.
func allocatorOptions(cfg config.BrowserConfig, profileDir string) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
		chromedp.Flag("window-position", "0,0"),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.WindowSize(1366, 768),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	for _, arg := range cfg.Args {
		arg = strings.TrimPrefix(arg, "--")
		if name, value, found := strings.Cut(arg, "="); found {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(arg, true))
		}
	}
	return opts
}
