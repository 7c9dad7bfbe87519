// File: internal/browser/context.go
package browser

import "context"

// CombineContext creates a new context derived from ctx1 (the session context,
// which carries the CDP target) that is canceled when either ctx1 or ctx2 (the
// operational context) is canceled. Deriving from ctx1 preserves the chromedp
// connection values; the goroutine links ctx2's lifecycle in.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
