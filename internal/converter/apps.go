package converter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultTemplateSubdir is the template directory inside each app.
const DefaultTemplateSubdir = "templates"

// App is a project application whose templates may be converted.
type App struct {
	Name string
	Path string
}

// TemplateDirs returns the template directory of every app that lives
// directly under baseDir as baseDir/<name>. Apps anywhere else, such as
// vendored or third-party packages, are left out.
func TemplateDirs(baseDir string, apps []App, subdir string) []string {
	if subdir == "" {
		subdir = DefaultTemplateSubdir
	}

	base := filepath.Clean(baseDir)
	var dirs []string
	for _, app := range apps {
		if app.Name == "" || filepath.Clean(app.Path) != filepath.Join(base, app.Name) {
			continue
		}
		dirs = append(dirs, filepath.Join(app.Path, subdir))
	}
	return dirs
}

// DiscoverApps treats every immediate, non-hidden sub-directory of baseDir
// as an app. Results are sorted by name.
func DiscoverApps(fs afero.Fs, baseDir string) ([]App, error) {
	entries, err := afero.ReadDir(fs, baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", baseDir, err)
	}

	var apps []App
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		apps = append(apps, App{
			Name: entry.Name(),
			Path: filepath.Join(baseDir, entry.Name()),
		})
	}
	return apps, nil
}
