package stdout

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shineum/mdmail/internal/email"
)

func TestSend_BasicEmail(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:    "sender@example.com",
		To:      []string{"alice@example.com", "bob@example.com"},
		Subject: "Monthly Report",
		TextBody: "Please find the report attached.",
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "From: sender@example.com") {
		t.Error("output missing From header")
	}
	if !strings.Contains(output, "To: alice@example.com, bob@example.com") {
		t.Error("output missing To header")
	}
	if !strings.Contains(output, "Subject: Monthly Report") {
		t.Error("output missing Subject header")
	}
	if !strings.Contains(output, "Please find the report attached.") {
		t.Error("output missing body text")
	}
	if strings.Contains(output, "Attachments:") {
		t.Error("output should not contain Attachments line when there are none")
	}
	if !strings.HasPrefix(output, "========================================\n") {
		t.Error("output should start with separator line")
	}
	if !strings.HasSuffix(output, "========================================\n") {
		t.Error("output should end with separator line")
	}
}

func TestSend_WithCc(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "sender@example.com",
		To:       []string{"alice@example.com"},
		Cc:       []string{"carol@example.com"},
		Subject:  "With CC",
		TextBody: "Hello",
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Cc: carol@example.com") {
		t.Error("output missing Cc header")
	}
}

func TestSend_NoCc(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
		Subject:  "No CC",
		TextBody: "Body",
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if strings.Contains(output, "Cc:") {
		t.Error("output should not contain Cc line when there are no Cc recipients")
	}
}

func TestSend_WithAttachments(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "sender@example.com",
		To:       []string{"alice@example.com", "bob@example.com"},
		Cc:       []string{"carol@example.com"},
		Subject:  "Monthly Report",
		TextBody: "Please find the report attached.",
		Attachments: []email.Attachment{
			{
				Filename:    "report.pdf",
				ContentType: "application/pdf",
				Content:     make([]byte, 1258291), // ~1.2 MB
			},
			{
				Filename:    "summary.xlsx",
				ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				Content:     make([]byte, 46080), // ~45 KB
			},
		},
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Attachments:") {
		t.Error("output missing Attachments line")
	}
	if !strings.Contains(output, "report.pdf") {
		t.Error("output missing report.pdf attachment")
	}
	if !strings.Contains(output, "summary.xlsx") {
		t.Error("output missing summary.xlsx attachment")
	}
	if !strings.Contains(output, "report.pdf (1.2 MiB)") {
		t.Error("output should contain MiB size for large attachment")
	}
	if !strings.Contains(output, "summary.xlsx (45 KiB)") {
		t.Error("output should contain KiB size for medium attachment")
	}
}

func TestSend_HTMLBodyFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "sender@example.com",
		To:       []string{"recipient@example.com"},
		Subject:  "HTML Only",
		HTMLBody: "<p>HTML content</p>",
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "<p>HTML content</p>") {
		t.Error("output should display HTML body when text body is empty")
	}
}

func TestSend_MultipleRecipients(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		From:     "sender@example.com",
		To:       []string{"a@example.com", "b@example.com", "c@example.com"},
		Subject:  "To Many",
		TextBody: "Hello all",
	}

	err := p.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "To: a@example.com, b@example.com, c@example.com") {
		t.Error("output should list all recipients comma-separated")
	}
}

func TestSend_InlineImagesAndAlternative(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWithWriter(&buf)

	msg := &email.Message{
		MessageID: "<id@example.com>",
		From:      "sender@example.com",
		To:        []string{"recipient@example.com"},
		Bcc:       []string{"audit@example.com"},
		Subject:   "Inline",
		TextBody:  "![logo](logo.png)",
		HTMLBody:  `<img src="cid:logo.png">`,
		Inline:    []email.Attachment{email.NewInlineImage("logo.png", make([]byte, 2048))},
	}

	if err := p.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Message-ID: <id@example.com>",
		"Bcc: audit@example.com",
		"![logo](logo.png)",
		"HTML alternative: 24 B",
		"Inline: logo.png (2.0 KiB)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestSend_WriteError(t *testing.T) {
	t.Parallel()

	p := NewWithWriter(failingWriter{})
	err := p.Send(context.Background(), &email.Message{To: []string{"a@example.com"}})
	if err == nil {
		t.Fatal("expected write error to be returned")
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	p := New()
	if p.Name() != "stdout" {
		t.Errorf("Name: got %q, want %q", p.Name(), "stdout")
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bytes int
		want  string
	}{
		{name: "zero bytes", bytes: 0, want: "0 B"},
		{name: "small bytes", bytes: 512, want: "512 B"},
		{name: "kilobytes", bytes: 46080, want: "45 KiB"},
		{name: "megabytes", bytes: 1258291, want: "1.2 MiB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := formatSize(tt.bytes)
			if got != tt.want {
				t.Errorf("formatSize(%d): got %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
