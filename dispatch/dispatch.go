// Package dispatch delivers composed messages through an external chat surface.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Outcome is the result of one delivery attempt.
type Outcome int

const (
	// Delivered means the message was handed to the delivery surface.
	Delivered Outcome = iota + 1
	// NoChannelAvailable means the author cannot be messaged.
	NoChannelAvailable
	// DeliveryFailed means a channel was found but sending failed or timed out.
	DeliveryFailed
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case NoChannelAvailable:
		return "no_channel"
	case DeliveryFailed:
		return "delivery_failed"
	default:
		return "unknown"
	}
}

// Channel is an open conversation with one author.
type Channel interface {
	Send(ctx context.Context, text string) error
}

// Readier is implemented by channels that need time before they accept input.
type Readier interface {
	Ready(ctx context.Context) error
}

// ChatOpener finds a channel for an author. A nil Channel with a nil error
// means the author has no reachable channel.
type ChatOpener interface {
	OpenChannel(ctx context.Context, author string) (Channel, error)
}

// Dispatcher maps a chat surface onto delivery outcomes.
type Dispatcher struct {
	opener       ChatOpener
	readyTimeout time.Duration
	settleDelay  time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithReadyTimeout bounds the wait for a channel to become ready.
func WithReadyTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.readyTimeout = timeout
	}
}

// WithSettleDelay sets the pause between a channel becoming ready and sending.
func WithSettleDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		d.settleDelay = delay
	}
}

// New creates a Dispatcher.
func New(opener ChatOpener, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		opener:       opener,
		readyTimeout: 15 * time.Second,
		settleDelay:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch attempts delivery once. An error is returned only when no channel
// lookup could be made at all; the caller should retry that author later.
func (d *Dispatcher) Dispatch(ctx context.Context, author, message string) (Outcome, error) {
	ch, err := d.opener.OpenChannel(ctx, author)
	if err != nil {
		return 0, fmt.Errorf("open channel: %w", err)
	}
	if ch == nil {
		return NoChannelAvailable, nil
	}

	if r, ok := ch.(Readier); ok {
		readyCtx, cancel := context.WithTimeout(ctx, d.readyTimeout)
		err := r.Ready(readyCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				slog.Warn("chat channel not ready in time", "author", author, "timeout", d.readyTimeout)
			} else {
				slog.Warn("chat channel failed to get ready", "author", author, "error", err)
			}
			return DeliveryFailed, nil
		}
	}

	if err := sleep(ctx, d.settleDelay); err != nil {
		return DeliveryFailed, nil
	}

	if err := ch.Send(ctx, message); err != nil {
		slog.Warn("message send failed", "author", author, "error", err)
		return DeliveryFailed, nil
	}
	return Delivered, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
