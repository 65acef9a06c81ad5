// Package mail hands outbound account mail to a delivery backend. Delivery
// itself (SMTP, provider APIs) belongs to a separate worker.
package mail

import (
	"context"
	"log/slog"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes messages to the log instead of delivering them. Useful
// in development where links can be copied straight from the output.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, body string) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "outbound mail", "to", to, "subject", subject, "body", body)
	return nil
}
