package email

import (
	"errors"
	"net/mail"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrNoRecipient indicates a message without any envelope recipient.
var ErrNoRecipient = errors.New("email must have at least one recipient")

var address = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return errors.New("must be a valid RFC 5322 address")
	}
	return nil
})

// Validate checks that the message can be handed to a provider.
func (m *Message) Validate() error {
	if len(m.Recipients()) == 0 {
		return ErrNoRecipient
	}
	return validation.ValidateStruct(m,
		validation.Field(&m.From, validation.Required, address),
		validation.Field(&m.ReplyTo, address),
		validation.Field(&m.To, validation.Each(address)),
		validation.Field(&m.Cc, validation.Each(address)),
		validation.Field(&m.Bcc, validation.Each(address)),
		validation.Field(&m.Inline, validation.Each(validation.By(checkPart))),
		validation.Field(&m.Attachments, validation.Each(validation.By(checkPart))),
	)
}

func checkPart(value any) error {
	a, ok := value.(Attachment)
	if !ok {
		return nil
	}
	if a.Filename == "" {
		return errors.New("attachment filename is required")
	}
	return nil
}
