// Package smtp implements a Provider that delivers messages to an SMTP
// relay through gomail.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/shineum/mdmail/internal/email"
	"github.com/shineum/mdmail/internal/provider"
)

// Config holds the relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// SSL selects implicit TLS. Without it STARTTLS is used when the
	// server offers it.
	SSL                bool
	InsecureSkipVerify bool
	// LocalName is the hostname sent in HELO. Defaults to "localhost".
	LocalName string
}

// dialFunc opens a connection to the relay described by cfg.
type dialFunc func(cfg Config) (gomail.SendCloser, error)

// Provider sends each message over its own SMTP connection.
type Provider struct {
	cfg  Config
	dial dialFunc
}

// New creates a Provider for the given relay.
func New(cfg Config) *Provider {
	return &Provider{cfg: cfg, dial: dialRelay}
}

func dialRelay(cfg Config) (gomail.SendCloser, error) {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.SSL = cfg.SSL
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: cfg.Host}
	}
	if cfg.LocalName != "" {
		d.LocalName = cfg.LocalName
	}
	return d.Dial()
}

// Send dials the relay, transmits the message and closes the connection.
// Bcc recipients are part of the envelope but not of the written message.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sc, err := p.dial(p.cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to %s:%d: %w", p.cfg.Host, p.cfg.Port, err)
	}
	defer func() {
		if cerr := sc.Close(); cerr != nil {
			slog.Debug("closing SMTP connection", "error", cerr)
		}
	}()

	if err := gomail.Send(sc, msg.Compose()); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	slog.Debug("message relayed",
		"host", p.cfg.Host,
		"recipients", len(msg.Recipients()),
	)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "smtp"
}

// WithCredentials returns a copy of the provider that authenticates with
// the given username and password. Empty values keep the configured ones.
func (p *Provider) WithCredentials(username, password string) provider.Provider {
	cfg := p.cfg
	if username != "" {
		cfg.Username = username
	}
	if password != "" {
		cfg.Password = password
	}
	return &Provider{cfg: cfg, dial: p.dial}
}
