// File: internal/forms/plugin.go
// Description: The provider-plugin contract and the registry that resolves a
// plugin for a URL.
package forms

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/browser"
	"github.com/ckarabey/attendbot/internal/config"
)

// ErrNotSupported is returned by stub providers whose analysis is not
// implemented. It is distinguishable from a real analysis failure so callers
// can branch on it if they need to.
var ErrNotSupported = errors.New("form provider not supported")

// ErrUnknownProvider is returned when no registered plugin handles a URL.
var ErrUnknownProvider = errors.New("no plugin registered for URL")

// Plugin is the capability set every form provider implements.
type Plugin interface {
	// Provider returns the platform this plugin handles.
	Provider() Provider

	// CanHandle reports whether the URL belongs to this provider. It must be a
	// pure predicate: case-insensitive substring tests, no I/O.
	CanHandle(url string) bool

	// AnalyzeForm waits for the provider's question markup and classifies each
	// question into the semantic targets, producing a FieldMapping. Returns an
	// error if the form never loads or analysis is unsupported.
	AnalyzeForm(ctx context.Context, page browser.Page) (*FieldMapping, error)

	// FillForm writes the user data into the mapped controls with human-paced
	// interaction. Not transactional: on error, already-written fields remain.
	FillForm(ctx context.Context, page browser.Page, mapping *FieldMapping, user UserData) error

	// SubmitForm clicks the mapped submit control and waits for the page to
	// settle. Fails fast when no submit selector was discovered.
	SubmitForm(ctx context.Context, page browser.Page, mapping *FieldMapping) error

	// VerifySubmission reports whether the page shows a success confirmation.
	// Best-effort: false means "unverified", not necessarily "failed".
	VerifySubmission(ctx context.Context, page browser.Page) bool
}

// Intelligence resolves the plugin for a URL and delegates analysis.
// Plugins are consulted in registration order; the first match wins.
type Intelligence struct {
	plugins []Plugin
	logger  *zap.Logger
}

// NewIntelligence creates the registry with the given plugins in fixed order.
func NewIntelligence(logger *zap.Logger, plugins ...Plugin) *Intelligence {
	return &Intelligence{
		plugins: plugins,
		logger:  logger.Named("intelligence"),
	}
}

// DefaultPlugins returns the standard registration order: Microsoft Forms
// first, then the stubbed providers.
func DefaultPlugins(cfg config.FormsConfig, logger *zap.Logger) []Plugin {
	return []Plugin{
		NewMicrosoftPlugin(cfg, logger),
		NewGooglePlugin(),
		NewMoodlePlugin(),
	}
}

// IdentifyProvider returns the first registered plugin whose CanHandle accepts
// the URL, or nil when none does.
func (fi *Intelligence) IdentifyProvider(url string) Plugin {
	for _, p := range fi.plugins {
		if p.CanHandle(url) {
			fi.logger.Debug("Provider identified.",
				zap.String("provider", string(p.Provider())), zap.String("url", url))
			return p
		}
	}
	fi.logger.Warn("No plugin registered for URL.", zap.String("url", url))
	return nil
}

// AnalyzeForm resolves the plugin for the URL and delegates form analysis.
// An unknown provider is reported as an error, never a panic.
func (fi *Intelligence) AnalyzeForm(ctx context.Context, page browser.Page, url string) (Plugin, *FieldMapping, error) {
	plugin := fi.IdentifyProvider(url)
	if plugin == nil {
		return nil, nil, ErrUnknownProvider
	}

	mapping, err := plugin.AnalyzeForm(ctx, page)
	if err != nil {
		return plugin, nil, err
	}

	if mapping.IsComplete() {
		fi.logger.Info("Form analyzed.", zap.Float64("confidence", mapping.Confidence))
	} else {
		fi.logger.Warn("Incomplete field mapping.",
			zap.Strings("missing", mapping.MissingFields()),
			zap.Float64("confidence", mapping.Confidence))
	}
	return plugin, mapping, nil
}
