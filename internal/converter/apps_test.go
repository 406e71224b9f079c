package converter

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateDirs(t *testing.T) {
	t.Parallel()

	apps := []App{
		{Name: "core", Path: "/srv/proj/core"},
		{Name: "billing", Path: "/srv/proj/billing/"},
		{Name: "admin", Path: "/usr/lib/go/admin"},
		{Name: "nested", Path: "/srv/proj/apps/nested"},
		{Name: "renamed", Path: "/srv/proj/other"},
	}

	assert.Equal(t,
		[]string{"/srv/proj/core/templates", "/srv/proj/billing/templates"},
		TemplateDirs("/srv/proj", apps, ""),
	)
	assert.Equal(t,
		[]string{"/srv/proj/core/mail", "/srv/proj/billing/mail"},
		TemplateDirs("/srv/proj/", apps, "mail"),
	)
	assert.Empty(t, TemplateDirs("/srv/proj", nil, ""))
}

func TestDiscoverApps(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/proj/users/templates", 0o755))
	require.NoError(t, fs.MkdirAll("/proj/core", 0o755))
	require.NoError(t, fs.MkdirAll("/proj/.git", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/proj/go.mod", []byte("module x"), 0o644))

	apps, err := DiscoverApps(fs, "/proj")
	require.NoError(t, err)
	assert.Equal(t, []App{
		{Name: "core", Path: "/proj/core"},
		{Name: "users", Path: "/proj/users"},
	}, apps)

	// Discovered apps always satisfy the base directory convention.
	assert.Len(t, TemplateDirs("/proj", apps, ""), 2)
}

func TestDiscoverAppsMissingBase(t *testing.T) {
	t.Parallel()

	_, err := DiscoverApps(afero.NewMemMapFs(), "/nope")
	require.Error(t, err)
}
