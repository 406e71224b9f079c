package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shineum/mdmail/internal/config"
	"github.com/shineum/mdmail/internal/logging"
	"github.com/shineum/mdmail/internal/markdown"
	"github.com/shineum/mdmail/internal/metrics"
)

// state is shared by all subcommands once the root has loaded the
// configuration.
type state struct {
	configPath string
	cfg        *config.Config
	logCloser  io.Closer
}

// newRootCommand builds the command tree. The returned cleanup writes the
// metrics textfile and closes the log file; it must run whether or not the
// command succeeded.
func newRootCommand() (*cobra.Command, func()) {
	rt := &state{}

	root := &cobra.Command{
		Use:           "mdmail",
		Short:         "Markdown email templates and delivery",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rt.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			rt.cfg = cfg
			rt.logCloser = logging.Setup(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				File:   cfg.Logging.File,
				Out:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "path to YAML or TOML configuration file (optional)")

	root.AddCommand(
		newConvertCommand(rt),
		newSendCommand(rt),
		newInspectCommand(rt),
	)
	return root, rt.finish
}

// finish flushes state set up by the persistent pre-run. It is a no-op when
// the configuration never loaded.
func (rt *state) finish() {
	if rt.cfg == nil {
		return
	}
	if path := rt.cfg.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			slog.Warn("failed to write metrics textfile", "path", path, "error", err)
		}
	}
	if rt.logCloser != nil {
		if err := rt.logCloser.Close(); err != nil {
			slog.Warn("failed to close log file", "error", err)
		}
		rt.logCloser = nil
	}
}

// loadConfig loads configuration from the specified path (file + env
// override) or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// rendererOptions maps the mail section onto renderer options. imageRoot
// overrides the configured image root when set.
func rendererOptions(cfg *config.Config, imageRoot string) (markdown.Options, error) {
	opts := markdown.Options{
		HighlightStyle: cfg.Mail.HighlightStyle,
		AllowRawHTML:   cfg.Mail.AllowRawHTML,
		Sanitize:       cfg.Mail.Sanitize,
	}

	if cfg.Mail.CSSFile != "" {
		css, err := os.ReadFile(cfg.Mail.CSSFile)
		if err != nil {
			return opts, fmt.Errorf("failed to read css file: %w", err)
		}
		opts.DefaultCSS = string(css)
	}

	if imageRoot == "" {
		imageRoot = cfg.Mail.ImageRoot
	}
	if imageRoot != "" {
		opts.ImageRoot = os.DirFS(imageRoot)
	}
	return opts, nil
}

// readOptionalFile returns the contents of path, or "" when path is empty.
func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
