// Package email defines the outgoing message model shared by the mailer and
// every delivery provider, together with its MIME composition and parsing.
package email

import (
	"mime"
	"net/http"
	"path/filepath"
)

// Message is a fully assembled multipart email.
//
// Inline parts are carried in a multipart/related container next to the
// HTML body so that cid: references resolve; Attachments are regular
// downloadable parts.
type Message struct {
	MessageID   string
	From        string
	ReplyTo     string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	TextBody    string
	HTMLBody    string
	Headers     map[string]string
	Inline      []Attachment
	Attachments []Attachment
}

// Attachment is a single non-body MIME part.
type Attachment struct {
	Filename    string
	ContentType string
	// ContentID is the full header value including angle brackets, e.g. "<logo.png>".
	ContentID string
	Content   []byte
	// Headers holds additional part headers such as Content-Disposition.
	Headers map[string]string
}

// NewInlineImage builds an inline part referenced from HTML as cid:<filename>.
// The part is also marked as a named attachment so that plaintext-only
// clients offer it as a download instead of dropping it.
func NewInlineImage(filename string, content []byte) Attachment {
	return Attachment{
		Filename:    filename,
		ContentType: DetectContentType(filename, content),
		ContentID:   "<" + filename + ">",
		Content:     content,
		Headers: map[string]string{
			"Content-Disposition": "attachment; filename=" + filename,
		},
	}
}

// BareContentID returns the Content-ID without angle brackets, as expected
// by HTTP mail APIs.
func (a Attachment) BareContentID() string {
	id := a.ContentID
	if len(id) >= 2 && id[0] == '<' && id[len(id)-1] == '>' {
		return id[1 : len(id)-1]
	}
	return id
}

// Recipients returns every envelope recipient: To, Cc and Bcc.
func (m *Message) Recipients() []string {
	all := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	all = append(all, m.To...)
	all = append(all, m.Cc...)
	all = append(all, m.Bcc...)
	return all
}

// DetectContentType guesses a MIME type from the file extension, falling
// back to content sniffing.
func DetectContentType(filename string, content []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return http.DetectContentType(content)
}
