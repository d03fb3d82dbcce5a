package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailConfig identifies the service mailbox notifications are sent from.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FromAddress  string
	FromName     string
}

// GmailTransport sends through the Gmail API as the configured mailbox.
type GmailTransport struct {
	srv  *gmail.Service
	from *mail.Address
	now  func() time.Time
}

// NewGmailTransport builds the Gmail client once; the oauth2 token source
// refreshes the access token as needed.
func NewGmailTransport(ctx context.Context, cfg GmailConfig) (*GmailTransport, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("gmail transport requires client id, client secret and refresh token")
	}
	if cfg.FromAddress == "" {
		return nil, errors.New("gmail transport requires a from address")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	tokenSource := oauthConfig.TokenSource(ctx, &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now(), // force refresh on first use
	})

	srv, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	return &GmailTransport{
		srv:  srv,
		from: &mail.Address{Name: cfg.FromName, Address: cfg.FromAddress},
		now:  time.Now,
	}, nil
}

func (t *GmailTransport) Send(ctx context.Context, msg *Message) error {
	raw, err := Compose(t.from, msg, t.now())
	if err != nil {
		return err
	}

	gmsg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}
	if _, err := t.srv.Users.Messages.Send("me", gmsg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to send message: %w", err)
	}
	return nil
}
