// Package publish delivers qualified tokens to the chat notifier and
// the append-only files, with a per-mint cooldown.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier sends one already-formatted message to the chat channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier posts Markdown messages to a chat via the Bot API.
type TelegramNotifier struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	log     zerolog.Logger
}

var _ Notifier = (*TelegramNotifier)(nil)

// TelegramOptions configures the notifier.
type TelegramOptions struct {
	// BaseURL overrides the Bot API host, for tests. Optional.
	BaseURL  string
	BotToken string
	ChatID   string
	// Timeout bounds one send. Defaults to 10 s.
	Timeout time.Duration
	Logger  *zerolog.Logger
}

// NewTelegramNotifier validates credentials and builds the notifier.
func NewTelegramNotifier(opts TelegramOptions) (*TelegramNotifier, error) {
	if opts.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if opts.ChatID == "" {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	base := opts.BaseURL
	if base == "" {
		base = telegramAPIBase
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &TelegramNotifier{
		baseURL: base,
		token:   opts.BotToken,
		chatID:  opts.ChatID,
		client:  &http.Client{Timeout: timeout},
		log:     logger.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send posts one Markdown message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var out sendMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("telegram status %d: unparsable response", resp.StatusCode)
	}
	if !out.OK {
		return fmt.Errorf("telegram error %d: %s", out.ErrorCode, out.Description)
	}
	return nil
}
