package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/keighl/postmark"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
)

// Email is one outgoing message.
type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
	Tag     string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

func textToHTML(text string) string {
	paras := strings.Split(html.EscapeString(text), "\n\n")
	return "<p>" + strings.Join(paras, "</p><p>") + "</p>"
}

// PostmarkSender sends through the Postmark API.
type PostmarkSender struct {
	client *postmark.Client
	from   string
}

func NewPostmarkSender(serverToken, from string) (*PostmarkSender, error) {
	if serverToken == "" {
		return nil, errors.New("postmark server token is required")
	}
	return &PostmarkSender{client: postmark.NewClient(serverToken, ""), from: from}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, e Email) error {
	resp, err := s.client.SendEmail(postmark.Email{
		From:     s.from,
		To:       e.To,
		Subject:  e.Subject,
		TextBody: e.Text,
		HtmlBody: e.HTML,
		Tag:      e.Tag,
	})
	if err != nil {
		return &domain.ExternalServiceError{Service: "postmark", Err: fmt.Errorf("failed to send email: %w", err)}
	}
	if resp.ErrorCode != 0 {
		return &domain.ExternalServiceError{Service: "postmark", Err: fmt.Errorf("error %d: %s", resp.ErrorCode, resp.Message)}
	}
	return nil
}

// SendGridSender sends through the SendGrid v3 API.
type SendGridSender struct {
	client   *sendgrid.Client
	from     string
	fromName string
}

func NewSendGridSender(apiKey, from, fromName string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey), from: from, fromName: fromName}, nil
}

func (s *SendGridSender) Send(ctx context.Context, e Email) error {
	msg := mail.NewSingleEmail(mail.NewEmail(s.fromName, s.from), e.Subject, mail.NewEmail(e.ToName, e.To), e.Text, e.HTML)
	if e.Tag != "" {
		msg.AddCategories(e.Tag)
	}
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return &domain.ExternalServiceError{Service: "sendgrid", Err: err}
	}
	if resp.StatusCode >= 300 {
		return &domain.ExternalServiceError{Service: "sendgrid", Err: fmt.Errorf("status %d: %s", resp.StatusCode, resp.Body)}
	}
	return nil
}

// LogSender writes emails to the log. Used in development.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, e Email) error {
	logger.WithContext(ctx).Info().
		Str("to", e.To).
		Str("subject", e.Subject).
		Str("tag", e.Tag).
		Str("body", e.Text).
		Msg("Email (log sender)")
	return nil
}

// NewSender picks the provider named in configuration.
func NewSender(provider, from, fromName, postmarkToken, sendgridKey string) (Sender, error) {
	switch strings.ToLower(provider) {
	case "postmark":
		return NewPostmarkSender(postmarkToken, from)
	case "sendgrid":
		return NewSendGridSender(sendgridKey, from, fromName)
	case "", "log":
		return LogSender{}, nil
	}
	return nil, fmt.Errorf("unknown email provider %q", provider)
}
