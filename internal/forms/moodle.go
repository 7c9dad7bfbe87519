// File: internal/forms/moodle.go
// Description: Moodle provider placeholder.
package forms

import (
	"context"
	"strings"

	"github.com/ckarabey/attendbot/internal/browser"
)

// MoodlePlugin recognizes Moodle attendance links but does not yet automate
// them.
type MoodlePlugin struct{}

var _ Plugin = (*MoodlePlugin)(nil)

// NewMoodlePlugin creates the Moodle placeholder provider.
func NewMoodlePlugin() *MoodlePlugin { return &MoodlePlugin{} }

// Provider implements Plugin.
func (p *MoodlePlugin) Provider() Provider { return ProviderMoodle }

// CanHandle implements Plugin.
func (p *MoodlePlugin) CanHandle(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "moodle") || strings.Contains(u, "/mod/attendance/")
}

// AnalyzeForm implements Plugin.
func (p *MoodlePlugin) AnalyzeForm(ctx context.Context, page browser.Page) (*FieldMapping, error) {
	return nil, ErrNotSupported
}

// FillForm implements Plugin.
func (p *MoodlePlugin) FillForm(ctx context.Context, page browser.Page, mapping *FieldMapping, user UserData) error {
	return ErrNotSupported
}

// SubmitForm implements Plugin.
func (p *MoodlePlugin) SubmitForm(ctx context.Context, page browser.Page, mapping *FieldMapping) error {
	return ErrNotSupported
}

// VerifySubmission implements Plugin.
func (p *MoodlePlugin) VerifySubmission(ctx context.Context, page browser.Page) bool {
	return false
}
