package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/shineum/mdmail/internal/config"
	"github.com/shineum/mdmail/internal/converter"
	"github.com/shineum/mdmail/internal/markdown"
)

func newConvertCommand(rt *state) *cobra.Command {
	var (
		baseDir string
		cssFile string
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert Markdown templates into .txt and .html templates",
		Long: `Convert walks the template directory of every project app and every
extra configured directory, rendering each .md file into .txt and .html
siblings that start with a generated-file banner.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rt.cfg
			if baseDir != "" {
				cfg.Templates.BaseDir = baseDir
			}
			if cssFile == "" {
				cssFile = cfg.Mail.CSSFile
			}

			fs := afero.NewOsFs()
			dirs, err := templateDirs(fs, cfg.Templates)
			if err != nil {
				return err
			}

			css, err := readOptionalFile(cssFile)
			if err != nil {
				return fmt.Errorf("failed to read css file: %w", err)
			}

			ropts, err := rendererOptions(cfg, "")
			if err != nil {
				return err
			}
			conv, err := converter.New(fs, markdown.New(ropts), converter.CommentSyntax(cfg.Templates.CommentSyntax))
			if err != nil {
				return err
			}

			converted, err := conv.Convert(dirs, css)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d template(s)\n", len(converted))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseDir, "base-dir", "", "project base directory (overrides templates.base_dir)")
	cmd.Flags().StringVar(&cssFile, "css", "", "stylesheet inlined into the HTML output (overrides mail.css_file)")
	return cmd
}

// templateDirs resolves the directories to convert: the template directory
// of each project app followed by the extra configured directories. When no
// apps are configured, every sub-directory of the base dir is an app.
func templateDirs(fs afero.Fs, tc config.TemplatesConfig) ([]string, error) {
	apps := make([]converter.App, 0, len(tc.Apps))
	for _, a := range tc.Apps {
		apps = append(apps, converter.App{Name: a.Name, Path: a.Path})
	}

	if len(apps) == 0 {
		discovered, err := converter.DiscoverApps(fs, tc.BaseDir)
		if err != nil {
			return nil, err
		}
		apps = discovered
	}

	dirs := converter.TemplateDirs(tc.BaseDir, apps, tc.Subdir)
	return append(dirs, tc.Dirs...), nil
}
