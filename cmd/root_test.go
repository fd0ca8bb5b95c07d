package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/shelter-mirror/internal/app"
	"github.com/JakeFAU/shelter-mirror/internal/config"
	"github.com/JakeFAU/shelter-mirror/internal/mirror"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  development: false\n  level: error\n"), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateCommandWithMemoryStore(t *testing.T) {
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated (store driver memory)")
}

func TestSyncCommandNotConfigured(t *testing.T) {
	out, err := run(t, "sync")
	require.NoError(t, err)
	assert.Equal(t, "not updated", strings.TrimSpace(out))
}

func TestSyncCommandVerbose(t *testing.T) {
	out, err := run(t, "sync", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "not updated"`)
}

func TestRenderCommandEmptyMirror(t *testing.T) {
	out, err := run(t, "render", "--species", "dog", "--steps", "name,breed")
	require.NoError(t, err)
	assert.Equal(t, "", strings.TrimSpace(out))
}

func TestRenderCommandRejectsInvalidFilter(t *testing.T) {
	_, err := run(t, "render", "--species", "dog;drop")
	require.Error(t, err)
	assert.True(t, errors.Is(err, mirror.ErrInvalidFilter))
}

func TestAppFactoryFailureSurfaces(t *testing.T) {
	orig := newApp
	newApp = func(context.Context, config.Config, *zap.Logger) (*app.App, error) {
		return nil, errors.New("no database")
	}
	t.Cleanup(func() { newApp = orig })

	_, err := run(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database")
}

func TestResolveAppWithoutApp(t *testing.T) {
	_, err := resolveApp(context.Background())
	require.Error(t, err)
}
