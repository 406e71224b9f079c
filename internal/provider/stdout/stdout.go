// Package stdout implements a Provider that prints emails to standard output.
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/shineum/mdmail/internal/email"
)

const separator = "========================================\n"

// Provider prints email messages in a human-readable format. Concurrent
// sends are serialised so dumps do not interleave.
type Provider struct {
	mu sync.Mutex
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Send prints the email message. The text body is shown when present,
// otherwise the HTML body.
func (p *Provider) Send(_ context.Context, msg *email.Message) error {
	var b strings.Builder

	b.WriteString(separator)
	if msg.MessageID != "" {
		fmt.Fprintf(&b, "Message-ID: %s\n", msg.MessageID)
	}
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))

	if len(msg.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", strings.Join(msg.Cc, ", "))
	}
	if len(msg.Bcc) > 0 {
		fmt.Fprintf(&b, "Bcc: %s\n", strings.Join(msg.Bcc, ", "))
	}
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\n", msg.ReplyTo)
	}

	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	b.WriteString("Body:\n")

	body := msg.TextBody
	if body == "" {
		body = msg.HTMLBody
	}
	b.WriteString(body + "\n")

	if msg.TextBody != "" && msg.HTMLBody != "" {
		fmt.Fprintf(&b, "HTML alternative: %s\n", humanize.IBytes(uint64(len(msg.HTMLBody))))
	}
	if len(msg.Inline) > 0 {
		fmt.Fprintf(&b, "Inline: %s\n", describeParts(msg.Inline))
	}
	if len(msg.Attachments) > 0 {
		fmt.Fprintf(&b, "Attachments: %s\n", describeParts(msg.Attachments))
	}

	b.WriteString(separator)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := io.WriteString(p.writer, b.String()); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

func describeParts(parts []email.Attachment) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, fmt.Sprintf("%s (%s)", part.Filename, formatSize(len(part.Content))))
	}
	return strings.Join(out, ", ")
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	return humanize.IBytes(uint64(bytes))
}
