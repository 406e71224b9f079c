package mailer

import "errors"

var (
	// ErrSendFailed indicates the provider could not deliver the message.
	ErrSendFailed = errors.New("failed to send email")

	// ErrInvalidMessage indicates the assembled message failed validation.
	ErrInvalidMessage = errors.New("invalid email message")
)
