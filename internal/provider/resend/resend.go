// Package resend implements a Provider that sends emails through the
// Resend API.
package resend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/resend/resend-go/v3"

	"github.com/shineum/mdmail/internal/email"
)

// Config holds the Resend account settings.
type Config struct {
	APIKey      string
	SenderEmail string
	SenderName  string
}

// Provider sends messages with the Resend client.
type Provider struct {
	client *resend.Client
	config Config
}

// New creates a Provider using the public Resend endpoint.
func New(cfg Config) *Provider {
	return &Provider{
		client: resend.NewClient(cfg.APIKey),
		config: cfg,
	}
}

// newWithBaseURL points the client at another endpoint, used for testing.
func newWithBaseURL(cfg Config, baseURL string, httpClient *http.Client) (*Provider, error) {
	u, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil, err
	}
	client := resend.NewCustomClient(httpClient, cfg.APIKey)
	client.BaseURL = u
	return &Provider{client: client, config: cfg}, nil
}

// Send delivers the message. Inline parts are sent as attachments with a
// content ID so that cid: references in the HTML resolve.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	req := &resend.SendEmailRequest{
		From:    p.from(msg),
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTMLBody,
		Text:    msg.TextBody,
		Cc:      msg.Cc,
		Bcc:     msg.Bcc,
		Headers: msg.Headers,
	}
	if msg.ReplyTo != "" {
		req.ReplyTo = msg.ReplyTo
	}

	if n := len(msg.Inline) + len(msg.Attachments); n > 0 {
		req.Attachments = make([]*resend.Attachment, 0, n)
		for _, a := range msg.Inline {
			req.Attachments = append(req.Attachments, convertAttachment(a, a.BareContentID()))
		}
		for _, a := range msg.Attachments {
			req.Attachments = append(req.Attachments, convertAttachment(a, ""))
		}
	}

	sent, err := p.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}

	slog.Debug("resend accepted message", "resend_id", sent.Id)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "resend"
}

func (p *Provider) from(msg *email.Message) string {
	if msg.From != "" {
		return msg.From
	}
	if p.config.SenderName != "" {
		return fmt.Sprintf("%s <%s>", p.config.SenderName, p.config.SenderEmail)
	}
	return p.config.SenderEmail
}

func convertAttachment(a email.Attachment, contentID string) *resend.Attachment {
	return &resend.Attachment{
		Filename:    a.Filename,
		Content:     a.Content,
		ContentType: a.ContentType,
		ContentId:   contentID,
	}
}
