// File: internal/notify/notify_test.go
package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ckarabey/attendbot/internal/config"
)

type recordingSink struct {
	events []Event
	err    error
}

func (s *recordingSink) Notify(_ context.Context, event Event, _ string) error {
	s.events = append(s.events, event)
	return s.err
}

func TestMultiFansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMulti(zap.NewNop(), a, b)

	require.NoError(t, m.Notify(context.Background(), EventSuccess, "done"))
	assert.Equal(t, []Event{EventSuccess}, a.events)
	assert.Equal(t, []Event{EventSuccess}, b.events)
}

func TestMultiSwallowsSinkFailure(t *testing.T) {
	failing := &recordingSink{err: errors.New("sink down")}
	healthy := &recordingSink{}
	m := NewMulti(zap.NewNop(), failing, healthy)

	err := m.Notify(context.Background(), EventFailure, "boom")
	assert.NoError(t, err)
	assert.Len(t, healthy.events, 1)
}

func TestTelegramNotify(t *testing.T) {
	var gotPath string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier(config.NotifyConfig{
		TelegramToken:  "token123",
		TelegramChatID: "chat42",
	})
	n.baseURL = srv.URL

	require.NoError(t, n.Notify(context.Background(), EventCaptcha, "CAPTCHA detected"))
	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Contains(t, gotBody, `"chat_id":"chat42"`)
	assert.Contains(t, gotBody, "CAPTCHA detected")
}

func TestTelegramNotifyBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewTelegramNotifier(config.NotifyConfig{TelegramToken: "t", TelegramChatID: "c"})
	n.baseURL = srv.URL

	err := n.Notify(context.Background(), EventFailure, "x")
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(zap.NewNop())
	assert.NoError(t, n.Notify(context.Background(), EventSuccess, "ok"))
	assert.NoError(t, n.Notify(context.Background(), EventFailure, "bad"))
}
