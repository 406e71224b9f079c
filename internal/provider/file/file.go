// Package file implements a Provider that writes each message to a
// directory as an RFC 5322 .eml file instead of delivering it.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/shineum/mdmail/internal/email"
)

// Provider stores messages under a directory of an afero filesystem.
type Provider struct {
	fs  afero.Fs
	dir string
}

// New creates a Provider writing to dir on the OS filesystem.
func New(dir string) *Provider {
	return NewWithFs(afero.NewOsFs(), dir)
}

// NewWithFs creates a Provider writing to dir on fs.
func NewWithFs(fs afero.Fs, dir string) *Provider {
	return &Provider{fs: fs, dir: dir}
}

// Send writes the message to <dir>/<uuid>.eml, creating dir if needed.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to compose message: %w", err)
	}

	if err := p.fs.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", p.dir, err)
	}

	path := filepath.Join(p.dir, uuid.NewString()+".eml")
	if err := afero.WriteFile(p.fs, path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	slog.Info("message written", "path", path, "subject", msg.Subject)
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "file"
}
