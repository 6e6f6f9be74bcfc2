// Package notify delivers finished report text to the chat channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram posts report chunks through the bot sendMessage endpoint.
// Chunking is the report assembler's job; each chunk sends as one message.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// Option configures Telegram construction parameters.
type Option func(*Telegram)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(t *Telegram) {
		if baseURL != "" {
			t.baseURL = baseURL
		}
	}
}

// NewTelegram builds a notifier. Missing credentials leave it disabled
// rather than failing, so the scanner can run report-to-log only.
func NewTelegram(token, chatID string, log zerolog.Logger, opts ...Option) *Telegram {
	t := &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: defaultTelegramBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Enabled reports whether credentials are configured.
func (t *Telegram) Enabled() bool {
	return t.token != "" && t.chatID != ""
}

// Send posts each chunk in order. The first delivery failure aborts the
// remaining chunks so a partial report is not silently reordered.
func (t *Telegram) Send(ctx context.Context, chunks []string) error {
	if !t.Enabled() {
		return nil
	}
	for i, chunk := range chunks {
		if err := t.sendMessage(ctx, chunk); err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	t.log.Debug().Int("chunks", len(chunks)).Msg("report delivered")
	return nil
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
