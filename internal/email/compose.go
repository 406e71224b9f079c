package email

import (
	"bytes"
	"io"

	"gopkg.in/gomail.v2"
)

// Compose converts the message into a gomail message.
//
// The text body is the primary part and the HTML body its alternative.
// Inline parts are embedded, which places them together with the
// alternative in a multipart/related container; attachments go into the
// outer multipart/mixed container. Bcc is kept for the envelope only.
func (m *Message) Compose() *gomail.Message {
	gm := gomail.NewMessage(gomail.SetCharset("UTF-8"))

	if m.From != "" {
		gm.SetHeader("From", m.From)
	}
	setAddresses(gm, "To", m.To)
	setAddresses(gm, "Cc", m.Cc)
	setAddresses(gm, "Bcc", m.Bcc)
	if m.ReplyTo != "" {
		gm.SetHeader("Reply-To", m.ReplyTo)
	}
	if m.MessageID != "" {
		gm.SetHeader("Message-ID", m.MessageID)
	}
	gm.SetHeader("Subject", m.Subject)
	for k, v := range m.Headers {
		gm.SetHeader(k, v)
	}

	switch {
	case m.TextBody != "" && m.HTMLBody != "":
		gm.SetBody("text/plain", m.TextBody)
		gm.AddAlternative("text/html", m.HTMLBody)
	case m.HTMLBody != "":
		gm.SetBody("text/html", m.HTMLBody)
	default:
		gm.SetBody("text/plain", m.TextBody)
	}

	for _, a := range m.Inline {
		gm.Embed(a.Filename, partSettings(a)...)
	}
	for _, a := range m.Attachments {
		gm.Attach(a.Filename, partSettings(a)...)
	}

	return gm
}

// WriteTo writes the RFC 5322 form of the message to w.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	return m.Compose().WriteTo(w)
}

// Bytes returns the RFC 5322 form of the message.
func (m *Message) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setAddresses(gm *gomail.Message, field string, addrs []string) {
	if len(addrs) > 0 {
		gm.SetHeader(field, addrs...)
	}
}

func partSettings(a Attachment) []gomail.FileSetting {
	header := make(map[string][]string, len(a.Headers)+2)
	if a.ContentType != "" {
		header["Content-Type"] = []string{a.ContentType}
	}
	if a.ContentID != "" {
		header["Content-ID"] = []string{a.ContentID}
	}
	for k, v := range a.Headers {
		header[k] = []string{v}
	}

	content := a.Content
	return []gomail.FileSetting{
		gomail.SetHeader(header),
		gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}),
	}
}
