// Package notifier delivers run events to the operator.
package notifier

import (
	"github.com/rs/zerolog"
)

// Sender delivers one message and reports whether it got through.
type Sender interface {
	Send(text string) error
}

// Notifier is the fire-and-forget channel the pipeline reports through.
type Notifier interface {
	Notify(text string)
}

// BestEffort wraps a Sender; delivery failures are logged and dropped.
type BestEffort struct {
	sender Sender
	log    zerolog.Logger
}

// NewBestEffort wraps sender.
func NewBestEffort(sender Sender, log zerolog.Logger) *BestEffort {
	return &BestEffort{sender: sender, log: log.With().Str("component", "notifier").Logger()}
}

// Notify sends text once; errors never reach the caller.
func (b *BestEffort) Notify(text string) {
	if err := b.sender.Send(text); err != nil {
		b.log.Warn().Err(err).Msg("notification not delivered")
	}
}

// LogSender writes messages to the log instead of a chat. Used when Telegram is not configured.
type LogSender struct {
	Log zerolog.Logger
}

func (l LogSender) Send(text string) error {
	l.Log.Info().Str("channel", "log").Msg(text)
	return nil
}
