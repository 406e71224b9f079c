package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shineum/mdmail/internal/config"
	"github.com/shineum/mdmail/internal/provider"
	"github.com/shineum/mdmail/internal/provider/file"
	"github.com/shineum/mdmail/internal/provider/graph"
	"github.com/shineum/mdmail/internal/provider/resend"
	"github.com/shineum/mdmail/internal/provider/ses"
	"github.com/shineum/mdmail/internal/provider/smtp"
	"github.com/shineum/mdmail/internal/provider/stdout"
)

// selectProvider chooses the email delivery backend based on configuration.
// An explicit provider wins. Otherwise the first fully configured backend
// is used in the order graph, ses, smtp, resend, falling back to stdout.
func selectProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	name := cfg.Provider
	if name == "" {
		name = detectProvider(cfg)
		slog.Debug("auto-detected provider", "provider", name)
	}

	switch name {
	case "smtp":
		slog.Debug("using SMTP provider", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
		return smtp.New(smtp.Config{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			SSL:                cfg.SMTP.SSL,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
			LocalName:          cfg.SMTP.LocalName,
		}), nil

	case "ses":
		slog.Debug("using AWS SES provider", "region", cfg.SES.Region, "sender", cfg.SES.Sender)
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:           cfg.SES.Region,
			AccessKeyID:      cfg.SES.AccessKeyID,
			SecretAccessKey:  cfg.SES.SecretAccessKey,
			Sender:           cfg.SES.Sender,
			ConfigurationSet: cfg.SES.ConfigurationSet,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case "graph":
		slog.Debug("using Microsoft Graph provider", "sender", cfg.Graph.Sender)
		return graph.New(graph.Config{
			TenantID:        cfg.Graph.TenantID,
			ClientID:        cfg.Graph.ClientID,
			ClientSecret:    cfg.Graph.ClientSecret,
			Sender:          cfg.Graph.Sender,
			SaveToSentItems: cfg.Graph.SaveToSentItems,
		}), nil

	case "resend":
		slog.Debug("using Resend provider", "sender", cfg.Resend.SenderEmail)
		return resend.New(resend.Config{
			APIKey:      cfg.Resend.APIKey,
			SenderEmail: cfg.Resend.SenderEmail,
			SenderName:  cfg.Resend.SenderName,
		}), nil

	case "file":
		slog.Debug("using file provider", "dir", cfg.File.Dir)
		return file.New(cfg.File.Dir), nil

	case "stdout":
		return stdout.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

func detectProvider(cfg *config.Config) string {
	switch {
	case cfg.GraphConfigured():
		return "graph"
	case cfg.SESConfigured():
		return "ses"
	case cfg.SMTPConfigured():
		return "smtp"
	case cfg.ResendConfigured():
		return "resend"
	default:
		return "stdout"
	}
}
