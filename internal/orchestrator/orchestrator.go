// File: internal/orchestrator/orchestrator.go
// Description: The form-processing pipeline. Coordinates rate limiting,
// navigation, analysis, filling, submission and verification, and persists
// exactly one audit record per invocation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/browser"
	"github.com/ckarabey/attendbot/internal/config"
	"github.com/ckarabey/attendbot/internal/forms"
	"github.com/ckarabey/attendbot/internal/humanoid"
	"github.com/ckarabey/attendbot/internal/notify"
)

// Pipeline failure classes. ProcessForm wraps the underlying cause with
// exactly one of these so callers can branch without string matching.
var (
	ErrRateLimited    = errors.New("rate limit wait aborted")
	ErrNavigation     = errors.New("navigation failed")
	ErrCaptchaBlocked = errors.New("blocked by CAPTCHA")
	ErrAnalysis       = errors.New("form analysis failed")
	ErrLowConfidence  = errors.New("field mapping confidence below threshold")
	ErrFill           = errors.New("form filling failed")
	ErrSubmit         = errors.New("form submission failed")
)

// RateGate is the slice of the rate limiter the pipeline consumes.
type RateGate interface {
	WaitIfNeeded(ctx context.Context) error
	RecordSubmission()
}

// Recorder persists submission audit records and learned field mappings.
type Recorder interface {
	Record(ctx context.Context, sub *forms.Submission) error
	FieldPattern(ctx context.Context, signature string) (*forms.FieldPattern, error)
	SaveFieldPattern(ctx context.Context, p *forms.FieldPattern) error
}

// Orchestrator runs the six-step pipeline: rate gate, navigate, CAPTCHA
// check, analyze, fill, submit-and-verify.
type Orchestrator struct {
	cfg      config.FormsConfig
	user     config.UserConfig
	pager    browser.Pager
	intel    *forms.Intelligence
	rate     RateGate
	store    Recorder
	notifier notify.Notifier
	behavior *humanoid.Behavior
	log      *zap.Logger
}

// New wires the pipeline. All dependencies are required; store and notifier
// may be no-op implementations but never nil.
func New(
	cfg config.FormsConfig,
	user config.UserConfig,
	pager browser.Pager,
	intel *forms.Intelligence,
	rate RateGate,
	store Recorder,
	notifier notify.Notifier,
	behavior *humanoid.Behavior,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		user:     user,
		pager:    pager,
		intel:    intel,
		rate:     rate,
		store:    store,
		notifier: notifier,
		behavior: behavior,
		log:      logger.Named("orchestrator"),
	}
}

// ProcessForm runs the full pipeline for one form URL. Exactly one Submission
// is persisted per call, whatever the outcome; the returned record mirrors
// what was stored. The error classifies the failure and is nil on success —
// including the case where submission could not be verified, which is
// reported as success with a note.
func (o *Orchestrator) ProcessForm(ctx context.Context, url string) (*forms.Submission, error) {
	started := time.Now()
	sub := &forms.Submission{
		Timestamp:       started,
		FormURL:         url,
		Provider:        forms.ProviderUnknown,
		DetectionMethod: forms.DetectionRuleBased,
		StudentName:     o.user.StudentName,
		StudentID:       o.user.StudentID,
		Status:          forms.StatusFailed,
	}

	err := o.run(ctx, url, sub)
	sub.ProcessingTime = time.Since(started)
	if err != nil {
		sub.ErrorMessage = err.Error()
		if errors.Is(err, ErrCaptchaBlocked) {
			sub.Status = forms.StatusCaptcha
		}
	}

	// The single persistence point. A storage failure is logged, never
	// surfaced: the pipeline outcome stands on its own.
	if recErr := o.store.Record(ctx, sub); recErr != nil {
		o.log.Error("Failed to persist submission record.", zap.Error(recErr))
	}

	o.announce(ctx, sub, err)
	return sub, err
}

// run executes the pipeline steps against a fresh tab, mutating sub as facts
// become known. Returns a classified error on the first failed step.
func (o *Orchestrator) run(ctx context.Context, url string, sub *forms.Submission) error {
	if err := o.rate.WaitIfNeeded(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	page, err := o.pager.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	defer func() {
		if cerr := page.Close(context.WithoutCancel(ctx)); cerr != nil {
			o.log.Warn("Failed to close tab.", zap.Error(cerr))
		}
	}()
	// Best-effort DOM snapshot for the audit record on every exit path; the
	// success path below captures its own post-submit snapshot first.
	defer func() {
		if sub.DOMSnapshot != "" {
			return
		}
		if dom, derr := page.Content(context.WithoutCancel(ctx)); derr == nil {
			sub.DOMSnapshot = dom
		}
	}()

	if err := o.navigateWithRetry(ctx, page, url); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	sub.ScreenshotBefore = o.screenshot(ctx, page, "before")

	if err := o.captchaGate(ctx, page, url); err != nil {
		return err
	}

	plugin, mapping, err := o.intel.AnalyzeForm(ctx, page, url)
	if plugin != nil {
		sub.Provider = plugin.Provider()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAnalysis, err)
	}
	sub.Confidence = mapping.Confidence

	// A human skims the questions before touching the first field.
	if err := o.behavior.ReadingPause(ctx, 3); err != nil {
		return err
	}

	if mapping.Confidence < o.cfg.ConfidenceThreshold {
		// A mapping learned from an earlier successful run of the same form
		// can stand in for an analysis the rules could not complete.
		if learned := o.learnedMapping(ctx, url); learned != nil {
			mapping = learned
			sub.DetectionMethod = forms.DetectionLearnedPattern
			sub.Confidence = mapping.Confidence
		} else {
			o.log.Warn("Refusing to fill: confidence below threshold.",
				zap.Float64("confidence", mapping.Confidence),
				zap.Float64("threshold", o.cfg.ConfidenceThreshold),
				zap.Strings("missing", mapping.MissingFields()))
			return fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence,
				mapping.Confidence, o.cfg.ConfidenceThreshold)
		}
	}

	user, err := forms.NewUserData(o.user.StudentName, o.user.StudentID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFill, err)
	}
	if err := plugin.FillForm(ctx, page, mapping, user); err != nil {
		return fmt.Errorf("%w: %v", ErrFill, err)
	}
	sub.ScreenshotFilled = o.screenshot(ctx, page, "filled")

	if err := plugin.SubmitForm(ctx, page, mapping); err != nil {
		return fmt.Errorf("%w: %v", ErrSubmit, err)
	}
	// The click went out; it counts against the rate budget even if
	// verification below is inconclusive.
	o.rate.RecordSubmission()

	verified := plugin.VerifySubmission(ctx, page)
	sub.ScreenshotAfter = o.screenshot(ctx, page, "after")
	if dom, derr := page.Content(ctx); derr == nil {
		sub.DOMSnapshot = dom
	}

	sub.Status = forms.StatusSuccess
	o.rememberMapping(ctx, url, sub.Provider, mapping)
	if !verified {
		// Verification is best-effort evidence, not a gate: the submission
		// was sent, so the attempt is a success with a caveat.
		sub.ErrorMessage = "submitted but could not verify confirmation"
		o.log.Warn("Submission sent but unverified.", zap.String("url", url))
	}
	return nil
}

// navigateWithRetry drives the page to the URL, retrying transient failures
// with a fixed delay between attempts.
func (o *Orchestrator) navigateWithRetry(ctx context.Context, page browser.Page, url string) error {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxRetryAttempts; attempt++ {
		if lastErr = page.Navigate(ctx, url); lastErr == nil {
			return nil
		}
		o.log.Warn("Navigation attempt failed.",
			zap.Int("attempt", attempt), zap.Error(lastErr))
		if attempt < o.cfg.MaxRetryAttempts {
			if err := humanoid.Sleep(ctx, o.cfg.RetryDelay); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// captchaGate checks for a CAPTCHA challenge. When one is present it notifies
// the operator, pauses so the challenge can be solved manually, and rechecks
// once. A challenge that survives the pause aborts the pipeline.
func (o *Orchestrator) captchaGate(ctx context.Context, page browser.Page, url string) error {
	if !browser.DetectCaptcha(ctx, page, o.log) {
		return nil
	}

	o.log.Warn("CAPTCHA detected, pausing for manual intervention.",
		zap.String("url", url), zap.Duration("pause", o.cfg.CaptchaPause))
	o.notifier.Notify(ctx, notify.EventCaptcha,
		fmt.Sprintf("CAPTCHA detected on %s - solve it within %s", url, o.cfg.CaptchaPause))

	if err := humanoid.Sleep(ctx, o.cfg.CaptchaPause); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaBlocked, err)
	}

	if browser.DetectCaptcha(ctx, page, o.log) {
		return fmt.Errorf("%w: challenge still present after pause", ErrCaptchaBlocked)
	}
	return nil
}

// learnedMapping loads a complete field mapping remembered from an earlier
// successful submission of the same form, or nil.
func (o *Orchestrator) learnedMapping(ctx context.Context, url string) *forms.FieldMapping {
	pattern, err := o.store.FieldPattern(ctx, formSignature(url))
	if err != nil {
		o.log.Warn("Failed to load learned field pattern.", zap.Error(err))
		return nil
	}
	if pattern == nil || !pattern.Mapping.IsComplete() {
		return nil
	}
	o.log.Info("Using learned field mapping.",
		zap.String("signature", pattern.FormSignature),
		zap.Int("success_count", pattern.SuccessCount))
	return &pattern.Mapping
}

// rememberMapping persists the mapping that just produced a successful
// submission. Best-effort.
func (o *Orchestrator) rememberMapping(ctx context.Context, url string, provider forms.Provider, mapping *forms.FieldMapping) {
	err := o.store.SaveFieldPattern(ctx, &forms.FieldPattern{
		FormSignature: formSignature(url),
		Provider:      provider,
		Mapping:       *mapping,
	})
	if err != nil {
		o.log.Warn("Failed to save field pattern.", zap.Error(err))
	}
}

// formSignature keys learned patterns: scheme-insensitive host plus path,
// with query and fragment dropped so tracking parameters don't split history.
func formSignature(rawURL string) string {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Host + u.Path)
}

// screenshot captures the page into the screenshot directory with a unique
// name. Best-effort: an empty path means the capture failed.
func (o *Orchestrator) screenshot(ctx context.Context, page browser.Page, stage string) string {
	if o.cfg.ScreenshotDir == "" {
		return ""
	}
	path := filepath.Join(o.cfg.ScreenshotDir,
		fmt.Sprintf("%s_%s.png", stage, uuid.NewString()))
	if err := page.Screenshot(ctx, path); err != nil {
		o.log.Warn("Screenshot failed.", zap.String("stage", stage), zap.Error(err))
		return ""
	}
	return path
}

// announce sends the outcome to the notification sinks.
func (o *Orchestrator) announce(ctx context.Context, sub *forms.Submission, err error) {
	switch {
	case err == nil:
		o.notifier.Notify(ctx, notify.EventSuccess,
			fmt.Sprintf("Attendance submitted: %s (confidence %.2f)", sub.FormURL, sub.Confidence))
	case errors.Is(err, ErrLowConfidence):
		o.notifier.Notify(ctx, notify.EventLowConfidence,
			fmt.Sprintf("Skipped %s: %v", sub.FormURL, err))
	case errors.Is(err, ErrCaptchaBlocked):
		// The CAPTCHA sink already fired during the gate; announce the final
		// outcome too so the operator knows the pause did not resolve it.
		o.notifier.Notify(ctx, notify.EventFailure,
			fmt.Sprintf("Gave up on %s: %v", sub.FormURL, err))
	default:
		o.notifier.Notify(ctx, notify.EventFailure,
			fmt.Sprintf("Failed %s: %v", sub.FormURL, err))
	}
}
