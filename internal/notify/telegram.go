package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramOptions configures the Telegram notifier.
type TelegramOptions struct {
	BaseURL    string        // default https://api.telegram.org
	HTTPClient *http.Client  // default 10s timeout
	Rate       rate.Limit    // messages per second, default 1
	Logger     *logrus.Entry // default standard logger
}

// Telegram sends HTML messages through the Bot API sendMessage method.
type Telegram struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *logrus.Entry
}

// NewTelegram creates a notifier for one bot token and chat.
func NewTelegram(token, chatID string, opts TelegramOptions) *Telegram {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultTelegramURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.WithField("component", "telegram")
	}
	return &Telegram{
		token:   token,
		chatID:  chatID,
		baseURL: opts.BaseURL,
		http:    opts.HTTPClient,
		limiter: rate.NewLimiter(opts.Rate, 1),
		logger:  opts.Logger,
	}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Notify implements Notifier.
func (t *Telegram) Notify(ctx context.Context, e Event) error {
	return t.Send(ctx, FormatHTML(e))
}

// Send posts a raw HTML message.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}

	var out sendMessageResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		// the token is part of the URL; never log it
		return fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode, out.Description)
	}

	t.logger.WithField("chat_id", t.chatID).Debug("telegram message sent")
	return nil
}
