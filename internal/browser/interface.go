// File: internal/browser/interface.go
package browser

import (
	"context"
	"time"
)

// Element is a handle to a DOM node discovered by a query. Scoped queries
// (QueryOne/QueryAll on an Element) search only within that node's subtree.
type Element interface {
	// Attribute returns the value of the named attribute and whether it exists.
	Attribute(name string) (string, bool)
	// Text returns the node's trimmed visible text.
	Text(ctx context.Context) (string, error)
	// QueryOne returns the first descendant matching selector, or nil if none.
	QueryOne(ctx context.Context, selector string) (Element, error)
	// QueryAll returns all descendants matching selector; empty slice if none.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Page is an opaque handle to a remote-controlled browser tab. Implementations
// own the interaction pacing; callers never sleep around these methods.
// QueryOne returns (nil, nil) when no element matches: absence is not an error.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	QueryOne(ctx context.Context, selector string) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	InnerText(ctx context.Context, selector string) (string, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	Check(ctx context.Context, selector string) error
	Screenshot(ctx context.Context, path string) error
	Content(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// Pager opens new tabs. The caller is responsible for closing each Page;
// processing opens at most one form tab at a time by construction.
type Pager interface {
	NewPage(ctx context.Context) (Page, error)
}
