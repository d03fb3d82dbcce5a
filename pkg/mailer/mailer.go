package mailer

import (
	"context"
	"errors"

	"decisionlog-backend/pkg/logger"
)

// Message is one outgoing notification email
type Message struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
	// Category is attached as an X-Notification-Type header
	Category string
}

// Transport delivers a message. A nil error means the provider accepted it.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

var ErrNoRecipient = errors.New("message has no recipient")

// LogTransport only logs. Used when no mail provider is configured.
type LogTransport struct{}

func (LogTransport) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	logger.Info("[Mailer] dry-run send", "to", msg.To, "subject", msg.Subject, "type", msg.Category)
	return nil
}
