package sentinel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	app, err := Open(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "logs"))
	assert.NoError(t, err, "expected logs dir to exist")
	assert.NotNil(t, app.Registry)
	assert.NotNil(t, app.Supervisor)
}

func TestAllocatePortUsesFallbackPicker(t *testing.T) {
	app, err := Open(t.TempDir())
	require.NoError(t, err)

	rec, err := app.AllocatePort(nil, "")
	require.NoError(t, err)
	assert.Greater(t, rec.Port, 0)
	assert.Equal(t, "default", rec.Name)
}

func TestResolveEnvFilesMissingIsNotError(t *testing.T) {
	got := ResolveEnvFiles(t.TempDir())
	assert.Empty(t, got)
}
