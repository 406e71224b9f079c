// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/mdmail/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider handles the actual transmission of a composed message to
// the target service (SMTP relay, SES, Graph, a local directory, ...).
type Provider interface {
	// Send delivers an email message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}

// CredentialBinder is implemented by providers that authenticate per
// connection and can be re-bound to a different account for a single send.
type CredentialBinder interface {
	// WithCredentials returns a copy of the provider that authenticates as user.
	WithCredentials(user, password string) Provider
}

// Bind returns p re-bound to the given credentials. Without credentials p
// is returned as is. The boolean reports false when credentials were given
// but p cannot take them, in which case p is returned unchanged.
func Bind(p Provider, user, password string) (Provider, bool) {
	if user == "" && password == "" {
		return p, true
	}
	b, ok := p.(CredentialBinder)
	if !ok {
		return p, false
	}
	return b.WithCredentials(user, password), true
}
