package config

import (
	"net/mail"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Providers lists the accepted values of Config.Provider.
var Providers = []any{"", "smtp", "ses", "graph", "resend", "file", "stdout"}

var mailbox = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return validation.NewError("validation_is_mailbox", "must be a valid email address")
	}
	return nil
})

// Validate checks the configuration for the selected provider.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(Providers...)),
		validation.Field(&c.Mail),
		validation.Field(&c.Templates),
		validation.Field(&c.SMTP, validation.When(c.Provider == "smtp", validation.By(requireHost))),
		validation.Field(&c.SES, validation.When(c.Provider == "ses", validation.By(requireSES))),
		validation.Field(&c.Graph, validation.When(c.Provider == "graph", validation.By(requireGraph))),
		validation.Field(&c.Resend, validation.When(c.Provider == "resend", validation.By(requireResend))),
		validation.Field(&c.File, validation.When(c.Provider == "file", validation.By(requireDir))),
		validation.Field(&c.Logging),
	)
}

// Validate implements validation.Validatable.
func (m MailConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.DefaultFrom, mailbox),
	)
}

// Validate implements validation.Validatable.
func (t TemplatesConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.BaseDir, validation.Required),
		validation.Field(&t.CommentSyntax, validation.In("", "go", "django", "jinja")),
		validation.Field(&t.Apps),
	)
}

// Validate implements validation.Validatable.
func (a AppConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
		validation.Field(&a.Path, validation.Required),
	)
}

// Validate implements validation.Validatable.
func (s SMTPConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Host, is.Host),
		validation.Field(&s.Port, validation.Min(1), validation.Max(65535)),
	)
}

// Validate implements validation.Validatable.
func (s SESConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Sender, mailbox),
	)
}

// Validate implements validation.Validatable.
func (g GraphConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Sender, is.EmailFormat),
	)
}

// Validate implements validation.Validatable.
func (r ResendConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SenderEmail, is.EmailFormat),
	)
}

// Validate implements validation.Validatable.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&l.Format, validation.In("text", "json")),
	)
}

func requireHost(value any) error {
	s, _ := value.(SMTPConfig)
	return validation.ValidateStruct(&s, validation.Field(&s.Host, validation.Required))
}

func requireSES(value any) error {
	s, _ := value.(SESConfig)
	return validation.ValidateStruct(&s,
		validation.Field(&s.Region, validation.Required),
		validation.Field(&s.Sender, validation.Required),
	)
}

func requireGraph(value any) error {
	g, _ := value.(GraphConfig)
	return validation.ValidateStruct(&g,
		validation.Field(&g.TenantID, validation.Required),
		validation.Field(&g.ClientID, validation.Required),
		validation.Field(&g.ClientSecret, validation.Required),
		validation.Field(&g.Sender, validation.Required),
	)
}

func requireResend(value any) error {
	r, _ := value.(ResendConfig)
	return validation.ValidateStruct(&r,
		validation.Field(&r.APIKey, validation.Required),
		validation.Field(&r.SenderEmail, validation.Required),
	)
}

func requireDir(value any) error {
	f, _ := value.(FileConfig)
	return validation.ValidateStruct(&f, validation.Field(&f.Dir, validation.Required))
}
