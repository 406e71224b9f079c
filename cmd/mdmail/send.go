package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shineum/mdmail/internal/email"
	"github.com/shineum/mdmail/internal/mailer"
	"github.com/shineum/mdmail/internal/markdown"
)

type sendOptions struct {
	subject      string
	from         string
	to           []string
	cc           []string
	bcc          []string
	replyTo      string
	headers      map[string]string
	htmlFile     string
	cssFile      string
	attach       []string
	imageRoot    string
	failSilently bool
	authUser     string
	authPassword string
}

func newSendCommand(rt *state) *cobra.Command {
	var opts sendOptions

	cmd := &cobra.Command{
		Use:   "send [file.md]",
		Short: "Render a Markdown email and send it",
		Long: `Send renders a Markdown file (or standard input when the file is "-" or
omitted) to plain text and HTML, embeds the local images it references
and delivers the result through the configured provider.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			return runSend(cmd, rt, source, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.subject, "subject", "s", "", "message subject")
	f.StringVar(&opts.from, "from", "", "sender address (defaults to mail.default_from)")
	f.StringSliceVar(&opts.to, "to", nil, "recipient address (repeatable)")
	f.StringSliceVar(&opts.cc, "cc", nil, "carbon copy address (repeatable)")
	f.StringSliceVar(&opts.bcc, "bcc", nil, "blind carbon copy address (repeatable)")
	f.StringVar(&opts.replyTo, "reply-to", "", "Reply-To address")
	f.StringToStringVar(&opts.headers, "header", nil, "extra header as Name=value (repeatable)")
	f.StringVar(&opts.htmlFile, "html", "", "file whose content replaces the rendered HTML")
	f.StringVar(&opts.cssFile, "css", "", "stylesheet inlined into the HTML (overrides mail.css_file)")
	f.StringSliceVarP(&opts.attach, "attach", "a", nil, "file to attach (repeatable)")
	f.StringVar(&opts.imageRoot, "image-root", "", "directory local images are loaded from (defaults to the Markdown file's directory)")
	f.BoolVar(&opts.failSilently, "fail-silently", false, "do not fail when delivery fails")
	f.StringVar(&opts.authUser, "auth-user", "", "username overriding the provider credentials")
	f.StringVar(&opts.authPassword, "auth-password", "", "password overriding the provider credentials")
	return cmd
}

func runSend(cmd *cobra.Command, rt *state, source string, opts sendOptions) error {
	cfg := rt.cfg

	body, err := readSource(cmd.InOrStdin(), source)
	if err != nil {
		return err
	}

	imageRoot := opts.imageRoot
	if imageRoot == "" && cfg.Mail.ImageRoot == "" {
		imageRoot = "."
		if source != "-" {
			imageRoot = filepath.Dir(source)
		}
	}
	ropts, err := rendererOptions(cfg, imageRoot)
	if err != nil {
		return err
	}

	css, err := readOptionalFile(opts.cssFile)
	if err != nil {
		return fmt.Errorf("failed to read css file: %w", err)
	}
	html, err := readOptionalFile(opts.htmlFile)
	if err != nil {
		return fmt.Errorf("failed to read html file: %w", err)
	}
	attachments, err := readAttachments(opts.attach)
	if err != nil {
		return err
	}

	p, err := selectProvider(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	m := mailer.New(p, markdown.New(ropts), mailer.Config{DefaultFrom: cfg.Mail.DefaultFrom})
	err = m.Send(cmd.Context(), mailer.SendParams{
		Subject:      opts.subject,
		Message:      body,
		From:         opts.from,
		To:           opts.to,
		Cc:           opts.cc,
		Bcc:          opts.bcc,
		ReplyTo:      opts.replyTo,
		Headers:      opts.headers,
		FailSilently: opts.failSilently,
		AuthUser:     opts.authUser,
		AuthPassword: opts.authPassword,
		HTMLMessage:  html,
		CSS:          css,
		Attachments:  attachments,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sent via %s\n", p.Name())
	return nil
}

func readSource(stdin io.Reader, source string) (string, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", source, err)
	}
	return string(data), nil
}

func readAttachments(paths []string) ([]email.Attachment, error) {
	var attachments []email.Attachment
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		name := filepath.Base(path)
		attachments = append(attachments, email.Attachment{
			Filename:    name,
			ContentType: email.DetectContentType(name, data),
			Content:     data,
		})
	}
	return attachments, nil
}
