package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/config"
)

// fakePage implements just enough of Page for CAPTCHA detection tests.
type fakePage struct {
	Page
	bodyText  string
	recaptcha bool
}

func (f *fakePage) QueryOne(ctx context.Context, selector string) (Element, error) {
	if f.recaptcha && selector == `iframe[src*="recaptcha"]` {
		return &fakeElement{}, nil
	}
	return nil, nil
}

func (f *fakePage) InnerText(ctx context.Context, selector string) (string, error) {
	return f.bodyText, nil
}

type fakeElement struct{ Element }

func TestDetectCaptchaIframe(t *testing.T) {
	p := &fakePage{recaptcha: true}
	assert.True(t, DetectCaptcha(context.Background(), p, zap.NewNop()))
}

func TestDetectCaptchaKeyword(t *testing.T) {
	cases := []struct {
		body string
		want bool
	}{
		{"Please solve this CAPTCHA to continue", true},
		{"Verify you are human before proceeding", true},
		{"Yoklama formu: ad soyad giriniz", false},
		{"", false},
	}
	for _, tc := range cases {
		p := &fakePage{bodyText: tc.body}
		assert.Equal(t, tc.want, DetectCaptcha(context.Background(), p, zap.NewNop()), tc.body)
	}
}

func TestCombineContextCancelsWithSecondary(t *testing.T) {
	primary := context.Background()
	secondary, cancelSecondary := context.WithCancel(context.Background())

	combined, cancel := CombineContext(primary, secondary)
	defer cancel()

	require.NoError(t, combined.Err())
	cancelSecondary()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context was not canceled by the secondary context")
	}
}

func TestCombineContextCancelsWithPrimary(t *testing.T) {
	primary, cancelPrimary := context.WithCancel(context.Background())
	combined, cancel := CombineContext(primary, context.Background())
	defer cancel()

	cancelPrimary()
	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context was not canceled by the primary context")
	}
}

func TestExpandProfileDir(t *testing.T) {
	dir, err := expandProfileDir("~/.attendbot/chrome")
	require.NoError(t, err)
	assert.NotContains(t, dir, "~")

	plain, err := expandProfileDir("/var/lib/attendbot")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/attendbot", plain)
}

func TestAllocatorOptionsIncludeCustomArgs(t *testing.T) {
	cfg := config.BrowserConfig{
		Headless: true,
		Locale:   "tr-TR",
		Args:     []string{"--proxy-server=localhost:8080", "mute-audio"},
	}
	opts := allocatorOptions(cfg, t.TempDir())
	// Base flag set plus headless plus the two custom args.
	assert.GreaterOrEqual(t, len(opts), 12)
}
