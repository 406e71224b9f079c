// Package mailer sends Markdown emails: the body is rendered to plain text
// and HTML, local images become inline parts, and the result is handed to a
// delivery provider.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/shineum/mdmail/internal/email"
	"github.com/shineum/mdmail/internal/markdown"
	"github.com/shineum/mdmail/internal/metrics"
	"github.com/shineum/mdmail/internal/provider"
)

// defaultMessageIDDomain is used when the sender address has no domain.
const defaultMessageIDDomain = "mdmail.localhost"

// Config holds mailer defaults.
type Config struct {
	// DefaultFrom is used when SendParams.From is empty.
	DefaultFrom string
	// CSS is used when SendParams.CSS is empty.
	CSS string
}

// Mailer renders and sends Markdown emails through a provider.
type Mailer struct {
	provider provider.Provider
	renderer markdown.Renderer
	config   Config
}

// New creates a new Mailer with the given provider and renderer.
func New(p provider.Provider, renderer markdown.Renderer, cfg Config) *Mailer {
	return &Mailer{
		provider: p,
		renderer: renderer,
		config:   cfg,
	}
}

// SendParams contains the parameters of a single email.
type SendParams struct {
	Subject string
	Message string // Markdown body
	From    string // Defaults to Config.DefaultFrom
	To      []string
	Cc      []string
	Bcc     []string
	ReplyTo string
	Headers map[string]string

	// FailSilently suppresses delivery errors. Render and validation
	// errors are always returned.
	FailSilently bool
	// AuthUser and AuthPassword re-bind the configured provider for this
	// message when it supports per-message credentials.
	AuthUser     string
	AuthPassword string
	// Connection replaces the configured provider for this message.
	// Credentials are not applied to it.
	Connection provider.Provider

	// HTMLMessage replaces the rendered HTML verbatim.
	HTMLMessage string
	// CSS is inlined into the rendered HTML. Defaults to Config.CSS.
	CSS         string
	Attachments []email.Attachment
}

// Send renders params.Message and delivers the result once.
//
// The rendered text is the primary body and the HTML its alternative.
// Images referenced from the Markdown are attached inline with
// Content-ID <filename> and Content-Disposition attachment; filename=...,
// so clients that only show plain text list them as files. Delivery errors
// are returned joined with ErrSendFailed unless FailSilently is set.
func (m *Mailer) Send(ctx context.Context, params SendParams) error {
	msg, err := m.buildMessage(params)
	if err != nil {
		return err
	}

	p := m.transport(params)

	if err := p.Send(ctx, msg); err != nil {
		metrics.SendFailures.WithLabelValues(p.Name()).Inc()
		if params.FailSilently {
			slog.Warn("email delivery failed, ignoring",
				"provider", p.Name(),
				"message_id", msg.MessageID,
				"error", err,
			)
			return nil
		}
		return errors.Join(ErrSendFailed, err)
	}

	metrics.MessagesSent.WithLabelValues(p.Name()).Inc()
	slog.Info("email sent",
		"provider", p.Name(),
		"message_id", msg.MessageID,
		"recipients", len(msg.Recipients()),
		"inline_images", len(msg.Inline),
		"attachments", len(msg.Attachments),
	)
	return nil
}

func (m *Mailer) buildMessage(params SendParams) (*email.Message, error) {
	css := params.CSS
	if css == "" {
		css = m.config.CSS
	}

	content, err := m.renderer.Render(params.Message, css)
	if err != nil {
		return nil, err
	}

	from := params.From
	if from == "" {
		from = m.config.DefaultFrom
	}

	msg := &email.Message{
		MessageID:   newMessageID(from),
		From:        from,
		ReplyTo:     params.ReplyTo,
		To:          params.To,
		Cc:          params.Cc,
		Bcc:         params.Bcc,
		Subject:     params.Subject,
		TextBody:    content.Text,
		HTMLBody:    content.HTML,
		Headers:     maps.Clone(params.Headers),
		Attachments: append([]email.Attachment(nil), params.Attachments...),
	}
	if params.HTMLMessage != "" {
		msg.HTMLBody = params.HTMLMessage
	}

	for _, img := range content.InlineImages {
		data, err := io.ReadAll(img.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: reading image %s: %v", markdown.ErrRenderFailed, img.Filename, err)
		}
		msg.Inline = append(msg.Inline, email.NewInlineImage(img.Filename, data))
	}

	if err := msg.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidMessage, err)
	}
	return msg, nil
}

func (m *Mailer) transport(params SendParams) provider.Provider {
	if params.Connection != nil {
		return params.Connection
	}

	p, ok := provider.Bind(m.provider, params.AuthUser, params.AuthPassword)
	if !ok {
		slog.Warn("provider does not accept per-message credentials, using configured account",
			"provider", m.provider.Name(),
		)
	}
	return p
}

// newMessageID returns <uuid@domain>, taking the domain from the sender.
func newMessageID(from string) string {
	domain := defaultMessageIDDomain
	if addr, err := mail.ParseAddress(from); err == nil {
		if at := strings.LastIndexByte(addr.Address, '@'); at >= 0 && at < len(addr.Address)-1 {
			domain = addr.Address[at+1:]
		}
	}
	return "<" + uuid.NewString() + "@" + domain + ">"
}
