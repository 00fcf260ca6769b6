package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/wonny/diamond/pkg/httputil"
	"github.com/wonny/diamond/pkg/logger"
)

const (
	defaultTelegramURL = "https://api.telegram.org"

	// MaxMessageLen keeps messages under Telegram's 4096 limit
	MaxMessageLen = 4000
)

// Telegram sends HTML messages through the Bot API
type Telegram struct {
	httpClient *httputil.Client
	baseURL    string
	token      string
	chatID     string
	logger     *logger.Logger
}

// NewTelegram creates a Telegram notifier
func NewTelegram(httpClient *httputil.Client, token, chatID string, log *logger.Logger) *Telegram {
	return &Telegram{
		httpClient: httpClient,
		baseURL:    defaultTelegramURL,
		token:      token,
		chatID:     chatID,
		logger:     log.WithModule("notify.telegram"),
	}
}

// WithBaseURL points the notifier at another API host (tests)
func (t *Telegram) WithBaseURL(base string) *Telegram {
	t.baseURL = base
	return t
}

// Send posts text to the configured chat
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram not configured")
	}

	payload := map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     truncate(text, MaxMessageLen),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	resp, err := t.httpClient.PostJSON(ctx, url, payload)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram status=%d", resp.StatusCode)
	}

	t.logger.WithField("length", len(text)).Debug("Telegram message sent")
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !runeStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func runeStart(b byte) bool {
	return b&0xC0 != 0x80
}
