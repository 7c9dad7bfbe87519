// File: internal/forms/microsoft.go
// Description: Microsoft Forms provider. Rule-based field identification tuned
// for Turkish educational attendance forms.
package forms

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/browser"
	"github.com/ckarabey/attendbot/internal/config"
	"github.com/ckarabey/attendbot/internal/humanoid"
)

const (
	msQuestionSelector   = `[data-automation-id="questionItem"]`
	msTitleSelector      = `[data-automation-id="questionTitle"]`
	msChoiceSelector     = `[data-automation-id="choiceItem"]`
	msSubmitSelector     = `button[data-automation-id="submitButton"]`
	msThankYouSelector   = `[data-automation-id="thankYouMessage"]`
	msTextInputSelector  = `input[type="text"]`
	msCheckboxSelector   = `input[type="checkbox"]`
)

// msSuccessPhrases are the post-submit confirmations Microsoft Forms renders,
// in the locales we submit to.
var msSuccessPhrases = []string{
	"yanıtınız kaydedildi",
	"teşekkürler",
	"gönderildi",
	"your response has been recorded",
	"thank you",
	"response recorded",
	"başarıyla gönderildi",
}

// MicrosoftPlugin handles forms.office.com / forms.microsoft.com.
type MicrosoftPlugin struct {
	cfg    config.FormsConfig
	logger *zap.Logger
}

var _ Plugin = (*MicrosoftPlugin)(nil)

// NewMicrosoftPlugin creates the Microsoft Forms provider.
func NewMicrosoftPlugin(cfg config.FormsConfig, logger *zap.Logger) *MicrosoftPlugin {
	return &MicrosoftPlugin{
		cfg:    cfg,
		logger: logger.Named("msforms"),
	}
}

// Provider implements Plugin.
func (p *MicrosoftPlugin) Provider() Provider { return ProviderMicrosoftForms }

// CanHandle implements Plugin with a case-insensitive domain-marker test.
func (p *MicrosoftPlugin) CanHandle(url string) bool {
	u := strings.ToLower(url)
	return strings.Contains(u, "forms.office.com") || strings.Contains(u, "forms.microsoft.com")
}

// AnalyzeForm waits for the question markup (login redirects can make this
// slow), then classifies every question block against the attendance pattern
// sets and derives stable selectors for the matched input controls.
func (p *MicrosoftPlugin) AnalyzeForm(ctx context.Context, page browser.Page) (*FieldMapping, error) {
	if err := page.WaitVisible(ctx, msQuestionSelector, p.cfg.AnalyzeTimeout); err != nil {
		return nil, fmt.Errorf("form questions did not load: %w", err)
	}

	questions, err := page.QueryAll(ctx, msQuestionSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate question blocks: %w", err)
	}
	p.logger.Info("Analyzing Microsoft Forms structure.", zap.Int("questions", len(questions)))

	mapping := &FieldMapping{}

	for idx, question := range questions {
		label, err := p.questionLabel(ctx, question)
		if err != nil {
			p.logger.Warn("Skipping unreadable question.", zap.Int("index", idx), zap.Error(err))
			continue
		}
		if label == "" {
			continue
		}

		switch classifyQuestion(label) {
		case fieldName:
			if sel := p.inputSelector(ctx, question, msTextInputSelector); sel != "" {
				mapping.NameField = sel
				p.logger.Debug("Found name field.", zap.String("label", label))
			}
		case fieldStudentID:
			if sel := p.inputSelector(ctx, question, msTextInputSelector); sel != "" {
				mapping.StudentIDField = sel
				p.logger.Debug("Found student ID field.", zap.String("label", label))
			}
		case fieldAttendance:
			// Checkbox first; some forms model attendance as a choice item.
			sel := p.inputSelector(ctx, question, msCheckboxSelector)
			if sel == "" {
				sel = p.inputSelector(ctx, question, msChoiceSelector)
			}
			if sel != "" {
				mapping.AttendanceField = sel
				p.logger.Debug("Found attendance control.", zap.String("label", label))
			}
		}
	}

	mapping.SubmitButton = p.findSubmitButton(ctx, page)
	mapping.Finalize()

	if mapping.IsComplete() {
		p.logger.Info("Form analysis complete.", zap.Float64("confidence", mapping.Confidence))
	} else {
		p.logger.Warn("Form analysis incomplete.",
			zap.Strings("missing", mapping.MissingFields()),
			zap.Float64("confidence", mapping.Confidence))
	}
	return mapping, nil
}

// questionLabel reads the normalized visible title of one question block.
func (p *MicrosoftPlugin) questionLabel(ctx context.Context, question browser.Element) (string, error) {
	title, err := question.QueryOne(ctx, msTitleSelector)
	if err != nil {
		return "", err
	}
	if title == nil {
		return "", nil
	}
	text, err := title.Text(ctx)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(text)), nil
}

// inputSelector locates the input control within the question's scope only
// (never globally) and converts it to a stable selector.
func (p *MicrosoftPlugin) inputSelector(ctx context.Context, question browser.Element, selector string) string {
	input, err := question.QueryOne(ctx, selector)
	if err != nil || input == nil {
		return ""
	}
	return stableSelector(input)
}

// findSubmitButton resolves the submit control: the automation marker if
// present, otherwise a scan of all buttons for provider-language affirmative
// text.
func (p *MicrosoftPlugin) findSubmitButton(ctx context.Context, page browser.Page) string {
	btn, err := page.QueryOne(ctx, msSubmitSelector)
	if err == nil && btn != nil {
		return stableSelector(btn)
	}

	buttons, err := page.QueryAll(ctx, "button")
	if err != nil {
		return ""
	}
	for _, b := range buttons {
		text, err := b.Text(ctx)
		if err != nil {
			continue
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "gönder") || strings.Contains(lower, "submit") {
			return stableSelector(b)
		}
	}
	return ""
}

// stableSelector derives a selector that survives page re-renders. The
// priority order is mandatory: automation identifier, element id, name
// attribute, then a last-resort root-scope fallback.
func stableSelector(el browser.Element) string {
	if v, ok := el.Attribute("data-automation-id"); ok && v != "" {
		return fmt.Sprintf(`[data-automation-id=%q]`, v)
	}
	if v, ok := el.Attribute("id"); ok && v != "" {
		return "#" + v
	}
	if v, ok := el.Attribute("name"); ok && v != "" {
		return fmt.Sprintf(`[name=%q]`, v)
	}
	return "body"
}

// FillForm writes the user data into the mapped controls. Interaction pacing
// is supplied by the page implementation. Not transactional: an error leaves
// already-filled fields in place, which is the caller's concern.
func (p *MicrosoftPlugin) FillForm(ctx context.Context, page browser.Page, mapping *FieldMapping, user UserData) error {
	if mapping.NameField != "" {
		if err := page.Type(ctx, mapping.NameField, user.StudentName); err != nil {
			return fmt.Errorf("failed to fill name field: %w", err)
		}
	}
	if mapping.StudentIDField != "" {
		if err := page.Type(ctx, mapping.StudentIDField, user.StudentID); err != nil {
			return fmt.Errorf("failed to fill student ID field: %w", err)
		}
	}
	if mapping.AttendanceField != "" {
		if err := page.Check(ctx, mapping.AttendanceField); err != nil {
			return fmt.Errorf("failed to toggle attendance control: %w", err)
		}
	}
	p.logger.Info("Form filled.")
	return nil
}

// SubmitForm clicks the submit control and waits a fixed settle period; many
// Microsoft Forms submissions do not trigger a full page transition.
func (p *MicrosoftPlugin) SubmitForm(ctx context.Context, page browser.Page, mapping *FieldMapping) error {
	if mapping.SubmitButton == "" {
		return fmt.Errorf("no submit control discovered")
	}

	p.logger.Info("Submitting form.")
	if err := page.Click(ctx, mapping.SubmitButton); err != nil {
		return fmt.Errorf("failed to click submit control: %w", err)
	}
	return humanoid.Sleep(ctx, p.cfg.SubmitSettleWait)
}

// VerifySubmission scans the page for a locale-specific success phrase or the
// dedicated thank-you marker. Best-effort: a false result means "unverified".
func (p *MicrosoftPlugin) VerifySubmission(ctx context.Context, page browser.Page) bool {
	body, err := page.InnerText(ctx, "body")
	if err != nil {
		p.logger.Warn("Could not read page text for verification.", zap.Error(err))
		return false
	}

	text := strings.ToLower(body)
	for _, phrase := range msSuccessPhrases {
		if strings.Contains(text, phrase) {
			p.logger.Info("Submission verified.", zap.String("phrase", phrase))
			return true
		}
	}

	marker, err := page.QueryOne(ctx, msThankYouSelector)
	if err == nil && marker != nil {
		p.logger.Info("Submission verified via thank-you marker.")
		return true
	}

	p.logger.Warn("Could not verify submission: no success indicators found.")
	return false
}
