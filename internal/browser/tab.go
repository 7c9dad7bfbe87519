// File: internal/browser/tab.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/config"
	"github.com/ckarabey/attendbot/internal/humanoid"
)

// Tab is the chromedp-backed implementation of Page. All interaction methods
// are human-paced via the shared Behavior.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	human  *humanoid.Behavior
	logger *zap.Logger
}

var _ Page = (*Tab)(nil)

func newTab(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, human *humanoid.Behavior, logger *zap.Logger) *Tab {
	return &Tab{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		human:  human,
		logger: logger.Named("tab"),
	}
}

// initialize creates the target, injects the stealth script so it runs before
// any page script, and applies the timezone override.
func (t *Tab) initialize(ctx context.Context, timezone string) error {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	return chromedp.Run(runCtx,
		chromedp.ActionFunc(func(c context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(c)
			return err
		}),
		emulation.SetTimezoneOverride(timezone),
	)
}

// Navigate loads the URL and waits for the document body to be ready, bounded
// by the configured navigation timeout.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	t.logger.Debug("Navigating.", zap.String("url", url))

	opCtx, opCancel := CombineContext(t.ctx, ctx)
	defer opCancel()

	navTimeout := t.cfg.Forms.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (t *Tab) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	opCtx, opCancel := CombineContext(t.ctx, ctx)
	defer opCancel()
	waitCtx, waitCancel := context.WithTimeout(opCtx, timeout)
	defer waitCancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("selector %q not visible within %s: %w", selector, timeout, err)
	}
	return nil
}

// QueryOne returns the first element matching selector, or nil when absent.
func (t *Tab) QueryOne(ctx context.Context, selector string) (Element, error) {
	elems, err := t.QueryAll(ctx, selector)
	if err != nil || len(elems) == 0 {
		return nil, err
	}
	return elems[0], nil
}

// QueryAll returns all elements matching selector at the document root.
func (t *Tab) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(runCtx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	return t.wrapNodes(nodes), nil
}

func (t *Tab) wrapNodes(nodes []*cdp.Node) []Element {
	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &tabElement{tab: t, node: n})
	}
	return elems
}

// InnerText returns the trimmed visible text of the first match.
func (t *Tab) InnerText(ctx context.Context, selector string) (string, error) {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	var text string
	if err := chromedp.Run(runCtx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Click scrolls the element into view and clicks it with surrounding pauses.
func (t *Tab) Click(ctx context.Context, selector string) error {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.ScrollIntoView(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to scroll %q into view: %w", selector, err)
	}
	if err := t.human.ClickPause(runCtx); err != nil {
		return err
	}
	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return t.human.ClickPause(runCtx)
}

// Type focuses the input, clears it, and sends the text one rune at a time
// with human key cadence.
func (t *Tab) Type(ctx context.Context, selector, text string) error {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	if err := t.Click(runCtx, selector); err != nil {
		return err
	}
	if err := chromedp.Run(runCtx, chromedp.SetValue(selector, "", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to clear %q: %w", selector, err)
	}

	for _, r := range text {
		if err := humanoid.Sleep(runCtx, t.human.KeyDelay()); err != nil {
			return err
		}
		if err := chromedp.Run(runCtx, chromedp.SendKeys(selector, string(r), chromedp.ByQuery)); err != nil {
			return fmt.Errorf("failed to type into %q: %w", selector, err)
		}
	}
	return nil
}

// Check toggles a checkbox/choice control on, verifying the resulting state.
// Already-checked controls are left alone.
func (t *Tab) Check(ctx context.Context, selector string) error {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	checked, err := t.isChecked(runCtx, selector)
	if err != nil {
		return err
	}
	if checked {
		return nil
	}

	if err := t.Click(runCtx, selector); err != nil {
		return err
	}

	checked, err = t.isChecked(runCtx, selector)
	if err != nil {
		return err
	}
	if !checked {
		// Some choice controls report state on a wrapper, not the input.
		// The click went through; treat it as best effort.
		t.logger.Debug("Control did not report checked state after click.", zap.String("selector", selector))
	}
	return nil
}

func (t *Tab) isChecked(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(
		`(function() {
			const el = document.querySelector(%q);
			if (!el) { return false; }
			return !!(el.checked || el.getAttribute("aria-checked") === "true");
		})()`, selector)

	var checked bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &checked)); err != nil {
		return false, fmt.Errorf("failed to read checked state of %q: %w", selector, err)
	}
	return checked, nil
}

// Screenshot captures the full page as PNG and writes it to path.
func (t *Tab) Screenshot(ctx context.Context, path string) error {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	return nil
}

// Content returns the current page's full HTML.
func (t *Tab) Content(ctx context.Context) (string, error) {
	runCtx, cancel := CombineContext(t.ctx, ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to capture page content: %w", err)
	}
	return html, nil
}

// Close releases the tab.
func (t *Tab) Close(ctx context.Context) error {
	if err := chromedp.Cancel(t.ctx); err != nil {
		t.logger.Debug("Graceful tab cancel failed.", zap.Error(err))
	}
	t.cancel()
	return nil
}

// tabElement is an Element backed by a resolved CDP node.
type tabElement struct {
	tab  *Tab
	node *cdp.Node
}

var _ Element = (*tabElement)(nil)

// Attribute returns the attribute value and whether the attribute is present.
func (e *tabElement) Attribute(name string) (string, bool) {
	e.node.RLock()
	defer e.node.RUnlock()
	for i := 0; i < len(e.node.Attributes)-1; i += 2 {
		if e.node.Attributes[i] == name {
			return e.node.Attributes[i+1], true
		}
	}
	return "", false
}

// Text returns the node's trimmed visible text.
func (e *tabElement) Text(ctx context.Context) (string, error) {
	runCtx, cancel := CombineContext(e.tab.ctx, ctx)
	defer cancel()

	var text string
	err := chromedp.Run(runCtx,
		chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read element text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// QueryOne returns the first descendant matching selector, or nil when absent.
func (e *tabElement) QueryOne(ctx context.Context, selector string) (Element, error) {
	elems, err := e.QueryAll(ctx, selector)
	if err != nil || len(elems) == 0 {
		return nil, err
	}
	return elems[0], nil
}

// QueryAll returns the descendants of this node matching selector.
func (e *tabElement) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	runCtx, cancel := CombineContext(e.tab.ctx, ctx)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(runCtx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("scoped query %q failed: %w", selector, err)
	}
	return e.tab.wrapNodes(nodes), nil
}
