// Package graph implements a Provider that sends emails via the Microsoft Graph API.
package graph

import (
	"encoding/base64"
	"maps"
	"net/mail"
	"slices"
	"strings"

	"github.com/shineum/mdmail/internal/email"
)

type sendMailRequest struct {
	Message         sendMailMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

type sendMailMessage struct {
	Subject                string            `json:"subject"`
	Body                   messageBody       `json:"body"`
	ToRecipients           []recipient       `json:"toRecipients"`
	CcRecipients           []recipient       `json:"ccRecipients,omitempty"`
	BccRecipients          []recipient       `json:"bccRecipients,omitempty"`
	ReplyTo                []recipient       `json:"replyTo,omitempty"`
	InternetMessageHeaders []messageHeader   `json:"internetMessageHeaders,omitempty"`
	Attachments            []graphAttachment `json:"attachments,omitempty"`
}

type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// messageHeader is a custom header; Graph only accepts X- prefixed names.
type messageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// graphAttachment is a fileAttachment. Inline parts set IsInline and a
// bare ContentID so that cid: references in the HTML body resolve.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
	ContentID    string `json:"contentId,omitempty"`
	IsInline     bool   `json:"isInline,omitempty"`
}

type graphErrorResponse struct {
	Error graphError `json:"error"`
}

type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a message into a sendMail request body.
// Graph accepts a single body, so the HTML body wins when present.
func buildSendMailRequest(msg *email.Message) *sendMailRequest {
	body := messageBody{
		ContentType: "text",
		Content:     msg.TextBody,
	}
	if msg.HTMLBody != "" {
		body.ContentType = "html"
		body.Content = msg.HTMLBody
	}

	var replyTo []recipient
	if msg.ReplyTo != "" {
		replyTo = recipients([]string{msg.ReplyTo})
	}

	var headers []messageHeader
	for _, name := range slices.Sorted(maps.Keys(msg.Headers)) {
		if len(name) > 2 && strings.EqualFold(name[:2], "x-") {
			headers = append(headers, messageHeader{Name: name, Value: msg.Headers[name]})
		}
	}

	attachments := make([]graphAttachment, 0, len(msg.Inline)+len(msg.Attachments))
	for _, att := range msg.Inline {
		a := fileAttachment(att)
		a.IsInline = true
		a.ContentID = att.BareContentID()
		attachments = append(attachments, a)
	}
	for _, att := range msg.Attachments {
		attachments = append(attachments, fileAttachment(att))
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject:                msg.Subject,
			Body:                   body,
			ToRecipients:           recipients(msg.To),
			CcRecipients:           recipients(msg.Cc),
			BccRecipients:          recipients(msg.Bcc),
			ReplyTo:                replyTo,
			InternetMessageHeaders: headers,
			Attachments:            attachments,
		},
	}
}

// recipients splits display-name forms such as "Alice <alice@example.com>"
// into Graph's name and address fields. Graph rejects an address field
// that carries a display name.
func recipients(addrs []string) []recipient {
	out := make([]recipient, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, recipient{EmailAddress: parseEmailAddress(addr)})
	}
	return out
}

func parseEmailAddress(addr string) emailAddress {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return emailAddress{Address: strings.TrimSpace(addr)}
	}
	return emailAddress{Name: parsed.Name, Address: parsed.Address}
}

func fileAttachment(att email.Attachment) graphAttachment {
	return graphAttachment{
		ODataType:    "#microsoft.graph.fileAttachment",
		Name:         att.Filename,
		ContentType:  att.ContentType,
		ContentBytes: base64.StdEncoding.EncodeToString(att.Content),
	}
}
