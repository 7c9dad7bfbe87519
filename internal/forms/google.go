// File: internal/forms/google.go
// Description: Google Forms provider placeholder. URL recognition works so
// the orchestrator can report a meaningful failure; automation is pending.
package forms

import (
	"context"
	"strings"

	"github.com/ckarabey/attendbot/internal/browser"
)

// GooglePlugin recognizes docs.google.com/forms links but does not yet
// automate them.
type GooglePlugin struct{}

var _ Plugin = (*GooglePlugin)(nil)

// NewGooglePlugin creates the Google Forms placeholder provider.
func NewGooglePlugin() *GooglePlugin { return &GooglePlugin{} }

// Provider implements Plugin.
func (p *GooglePlugin) Provider() Provider { return ProviderGoogleForms }

// CanHandle implements Plugin.
func (p *GooglePlugin) CanHandle(url string) bool {
	return strings.Contains(strings.ToLower(url), "docs.google.com/forms")
}

// AnalyzeForm implements Plugin.
func (p *GooglePlugin) AnalyzeForm(ctx context.Context, page browser.Page) (*FieldMapping, error) {
	return nil, ErrNotSupported
}

// FillForm implements Plugin.
func (p *GooglePlugin) FillForm(ctx context.Context, page browser.Page, mapping *FieldMapping, user UserData) error {
	return ErrNotSupported
}

// SubmitForm implements Plugin.
func (p *GooglePlugin) SubmitForm(ctx context.Context, page browser.Page, mapping *FieldMapping) error {
	return ErrNotSupported
}

// VerifySubmission implements Plugin.
func (p *GooglePlugin) VerifySubmission(ctx context.Context, page browser.Page) bool {
	return false
}
