// File: internal/notify/telegram.go
// Description: Telegram Bot API sink for submission notifications.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ckarabey/attendbot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const telegramAPIBase = "https://api.telegram.org"

// eventEmoji prefixes the message so events are scannable in a chat.
var eventEmoji = map[Event]string{
	EventSuccess:       "✅",
	EventFailure:       "❌",
	EventCaptcha:       "\U0001f6a8",
	EventLowConfidence: "⚠️",
}

// TelegramNotifier posts messages through the Telegram Bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier creates the Telegram sink from config. Call only when
// NotifyConfig.HasTelegram() is true.
func NewTelegramNotifier(cfg config.NotifyConfig) *TelegramNotifier {
	return &TelegramNotifier{
		token:   cfg.TelegramToken,
		chatID:  cfg.TelegramChatID,
		baseURL: telegramAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify implements Notifier by calling the sendMessage method.
func (t *TelegramNotifier) Notify(ctx context.Context, event Event, message string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": t.chatID,
		"text":    fmt.Sprintf("%s %s", eventEmoji[event], message),
	})
	if err != nil {
		return fmt.Errorf("failed to encode telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}
