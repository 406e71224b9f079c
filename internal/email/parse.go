package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// structuralHeaders are represented by dedicated Message fields or are
// regenerated on composition, so Parse does not copy them into Headers.
var structuralHeaders = map[string]bool{
	"From":                      true,
	"To":                        true,
	"Cc":                        true,
	"Bcc":                       true,
	"Reply-To":                  true,
	"Subject":                   true,
	"Message-Id":                true,
	"Date":                      true,
	"Mime-Version":              true,
	"Content-Type":              true,
	"Content-Transfer-Encoding": true,
}

// Parse reads an RFC 5322 message, such as the .eml files written by the
// file provider, back into a Message. Parts carrying a Content-ID are
// returned as Inline; other named parts as Attachments. Unrecognized MIME
// parts are logged and skipped.
func Parse(raw []byte) (*Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &Message{
		Headers:   make(map[string]string),
		From:      msg.Header.Get("From"),
		ReplyTo:   msg.Header.Get("Reply-To"),
		Subject:   decodeHeader(msg.Header.Get("Subject")),
		MessageID: msg.Header.Get("Message-Id"),
		To:        parseAddressList(msg.Header.Get("To")),
		Cc:        parseAddressList(msg.Header.Get("Cc")),
		Bcc:       parseAddressList(msg.Header.Get("Bcc")),
	}

	for key, values := range msg.Header {
		if structuralHeaders[key] || len(values) == 0 {
			continue
		}
		result.Headers[key] = values[0]
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read message body: %w", readErr)
		}
		result.TextBody = string(body)
		return result, nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := parseMultipart(msg.Body, boundary, result); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return result, nil
	}

	body, err := decodeContent(msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	switch mediaType {
	case "text/html":
		result.HTMLBody = string(body)
	case "text/plain":
		result.TextBody = string(body)
	default:
		slog.Warn("unrecognized top-level content type", "content_type", mediaType)
		result.TextBody = string(body)
	}

	return result, nil
}

func parseMultipart(body io.Reader, boundary string, result *Message) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			nested := params["boundary"]
			if nested == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := parseMultipart(part, nested, result); err != nil {
				slog.Warn("failed to parse nested multipart", "error", err)
			}
			continue
		}

		// multipart.Part strips Content-Transfer-Encoding after decoding
		// quoted-printable itself; base64 is left to us.
		content, err := decodeContent(part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		disposition := part.Header.Get("Content-Disposition")
		contentID := part.Header.Get("Content-Id")

		if contentID == "" && !strings.HasPrefix(disposition, "attachment") {
			switch mediaType {
			case "text/plain":
				if result.TextBody == "" {
					result.TextBody = string(content)
				}
				continue
			case "text/html":
				if result.HTMLBody == "" {
					result.HTMLBody = string(content)
				}
				continue
			}
			if part.FileName() == "" && params["name"] == "" {
				slog.Warn("unrecognized MIME part, skipping",
					"content_type", mediaType,
					"disposition", disposition,
				)
				continue
			}
		}

		att := Attachment{
			Filename:    extractFilename(part, params),
			ContentType: mediaType,
			ContentID:   contentID,
			Content:     content,
		}
		if disposition != "" {
			att.Headers = map[string]string{"Content-Disposition": disposition}
		}
		if contentID != "" {
			result.Inline = append(result.Inline, att)
		} else {
			result.Attachments = append(result.Attachments, att)
		}
	}
}

// decodeContent reads r fully, undoing the given Content-Transfer-Encoding.
func decodeContent(encoding string, r io.Reader) ([]byte, error) {
	encoding = strings.ToLower(strings.TrimSpace(encoding))

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch encoding {
	case "base64":
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	case "quoted-printable":
		return io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
	default:
		return raw, nil
	}
}

// extractFilename checks Content-Disposition, then the Content-Type name
// parameter, and finally derives a name from the media type.
func extractFilename(part *multipart.Part, params map[string]string) string {
	if fn := part.FileName(); fn != "" {
		return fn
	}
	if name := params["name"]; name != "" {
		return name
	}
	if mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err == nil {
		if _, sub, ok := strings.Cut(mediaType, "/"); ok {
			return "attachment." + sub
		}
	}
	return "attachment"
}

func decodeHeader(v string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

// parseAddressList splits a comma-separated address list into bare addresses.
func parseAddressList(raw string) []string {
	if raw == "" {
		return nil
	}

	addresses, err := mail.ParseAddressList(raw)
	if err != nil {
		parts := strings.Split(raw, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, addr.Address)
	}
	return result
}
