package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shineum/mdmail/internal/email"
)

type plainProvider struct{}

func (plainProvider) Send(context.Context, *email.Message) error { return nil }
func (plainProvider) Name() string                               { return "plain" }

type bindingProvider struct{ user, password string }

func (b bindingProvider) Send(context.Context, *email.Message) error { return nil }
func (b bindingProvider) Name() string                               { return "binding" }
func (b bindingProvider) WithCredentials(user, password string) Provider {
	return bindingProvider{user: user, password: password}
}

func TestBind(t *testing.T) {
	t.Parallel()

	t.Run("no credentials", func(t *testing.T) {
		t.Parallel()
		p, ok := Bind(plainProvider{}, "", "")
		require.True(t, ok)
		require.Equal(t, plainProvider{}, p)
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()
		p, ok := Bind(plainProvider{}, "user", "pass")
		require.False(t, ok)
		require.Equal(t, plainProvider{}, p)
	})

	t.Run("rebinds", func(t *testing.T) {
		t.Parallel()
		p, ok := Bind(bindingProvider{}, "user", "pass")
		require.True(t, ok)
		require.Equal(t, bindingProvider{user: "user", password: "pass"}, p)
	})
}
