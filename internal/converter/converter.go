// Package converter turns Markdown email templates into the plain text and
// HTML templates that are actually loaded at send time.
//
// For every name.md under a template directory it writes name.txt and
// name.html next to it. Both start with a one-line banner, a comment in the
// host template language, followed by the rendered text or HTML. Outputs
// are overwritten unconditionally, so running the conversion twice on
// unchanged input yields identical files.
package converter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/shineum/mdmail/internal/markdown"
	"github.com/shineum/mdmail/internal/metrics"
)

// Converter renders Markdown templates found on a filesystem.
type Converter struct {
	fs       afero.Fs
	renderer markdown.Renderer
	banner   string
}

// New creates a Converter that writes banners in the given comment syntax.
func New(fs afero.Fs, renderer markdown.Renderer, syntax CommentSyntax) (*Converter, error) {
	banner, err := Banner(syntax)
	if err != nil {
		return nil, err
	}
	return &Converter{fs: fs, renderer: renderer, banner: banner}, nil
}

// Convert walks each directory in lexical order and converts every .md
// file, returning the paths of the converted sources. Directories that do
// not exist are skipped. The first render or write error aborts the run;
// files converted before it are left in place.
func (c *Converter) Convert(dirs []string, css string) ([]string, error) {
	var converted []string

	for _, dir := range dirs {
		exists, err := afero.DirExists(c.fs, dir)
		if err != nil {
			return converted, fmt.Errorf("failed to stat %s: %w", dir, err)
		}
		if !exists {
			slog.Debug("template directory not found, skipping", "dir", dir)
			continue
		}

		err = afero.Walk(c.fs, dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(info.Name(), ".md") {
				return nil
			}
			if err := c.convertFile(path, css); err != nil {
				return err
			}
			converted = append(converted, path)
			return nil
		})
		if err != nil {
			return converted, err
		}
	}

	return converted, nil
}

func (c *Converter) convertFile(mdPath, css string) error {
	source, err := afero.ReadFile(c.fs, mdPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", mdPath, err)
	}

	content, err := c.renderer.Render(string(source), css)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", mdPath, err)
	}

	stem := strings.TrimSuffix(mdPath, filepath.Ext(mdPath))
	outputs := []struct {
		path string
		body string
	}{
		{stem + ".txt", content.Text},
		{stem + ".html", content.HTML},
	}
	for _, out := range outputs {
		data := []byte(c.banner + "\n" + out.body)
		if err := afero.WriteFile(c.fs, out.path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out.path, err)
		}
	}

	if len(content.InlineImages) > 0 {
		slog.Warn("template references local images; they are only embedded when sending",
			"path", mdPath,
			"images", len(content.InlineImages),
		)
	}

	metrics.TemplatesConverted.Inc()
	slog.Info("converted template", "path", mdPath)
	return nil
}
