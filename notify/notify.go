// Package notify sends operator-facing messages to Telegram.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers a text to the operator.
type Sender interface {
	Notify(ctx context.Context, text string, asHTML bool) error
}

// Telegram sends to a single operator chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects to the Bot API and verifies the token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// NewTelegramWithEndpoint is NewTelegram against a custom Bot API endpoint
// (format "https://host/bot%s/%s").
func NewTelegramWithEndpoint(token string, chatID int64, endpoint string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// Notify sends text to the operator chat.
func (t *Telegram) Notify(ctx context.Context, text string, asHTML bool) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if asHTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	msg.DisableWebPagePreview = true

	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// LogSender writes notifications to the structured log instead of a chat.
type LogSender struct{}

// Notify logs the text.
func (LogSender) Notify(ctx context.Context, text string, asHTML bool) error {
	slog.Info("notification", "text", text)
	return nil
}

// FormatContact renders a contact hand-off as Telegram HTML.
func FormatContact(author, message string) string {
	profile := "https://www.reddit.com/user/" + url.PathEscape(author)
	return fmt.Sprintf(
		"📬 New lead: <a href=\"%s\">u/%s</a>\n\n"+
			"<code>%s</code>",
		profile, html.EscapeString(author), html.EscapeString(message),
	)
}
