package dispatch

import (
	"context"
	"log/slog"

	"hire-scout/notify"
)

// RelayOpener hands every message to the operator for manual sending.
// Every author gets a channel.
type RelayOpener struct {
	sender notify.Sender
}

// NewRelayOpener creates a relay through sender.
func NewRelayOpener(sender notify.Sender) *RelayOpener {
	return &RelayOpener{sender: sender}
}

// OpenChannel always succeeds.
func (r *RelayOpener) OpenChannel(ctx context.Context, author string) (Channel, error) {
	return &relayChannel{sender: r.sender, author: author}, nil
}

type relayChannel struct {
	sender notify.Sender
	author string
}

func (c *relayChannel) Send(ctx context.Context, text string) error {
	return c.sender.Notify(ctx, notify.FormatContact(c.author, text), true)
}

// LogOpener is a dry run: messages are only logged.
type LogOpener struct{}

// OpenChannel always succeeds.
func (LogOpener) OpenChannel(ctx context.Context, author string) (Channel, error) {
	return logChannel(author), nil
}

type logChannel string

func (c logChannel) Send(ctx context.Context, text string) error {
	slog.Info("dry run message", "author", string(c), "message", text)
	return nil
}
