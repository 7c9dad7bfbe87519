// File: internal/browser/captcha.go
package browser

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// captchaKeywords mark challenge pages in the locales we submit to.
var captchaKeywords = []string{
	"captcha",
	"robot",
	"verify you are human",
	"insan olduğunuzu",
}

// DetectCaptcha reports whether the page currently shows a CAPTCHA challenge.
// It probes for a reCAPTCHA iframe first, then falls back to a keyword scan of
// the visible body text. Read errors are treated as "no CAPTCHA": the caller's
// pipeline will fail on its own if the page is genuinely unusable.
func DetectCaptcha(ctx context.Context, p Page, logger *zap.Logger) bool {
	frame, err := p.QueryOne(ctx, `iframe[src*="recaptcha"]`)
	if err == nil && frame != nil {
		logger.Warn("reCAPTCHA iframe detected.")
		return true
	}

	body, err := p.InnerText(ctx, "body")
	if err != nil {
		logger.Debug("Could not read body text for CAPTCHA scan.", zap.Error(err))
		return false
	}

	text := strings.ToLower(body)
	for _, keyword := range captchaKeywords {
		if strings.Contains(text, keyword) {
			logger.Warn("CAPTCHA keyword detected.", zap.String("keyword", keyword))
			return true
		}
	}
	return false
}
