package appdirs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaynet/gatewayd/internal/appdirs"
)

func TestCreate_ExplicitDirs(t *testing.T) {
	root := t.TempDir()

	dirs, err := appdirs.Create(appdirs.Dirs{
		Data: filepath.Join(root, "data"),
		Log:  filepath.Join(root, "nested", "log"),
	})
	require.NoError(t, err)

	for _, dir := range []string{dirs.Data, dirs.Log} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestCreate_IsIdempotent(t *testing.T) {
	root := t.TempDir()
	dirs := appdirs.Dirs{Data: filepath.Join(root, "data"), Log: filepath.Join(root, "log")}

	_, err := appdirs.Create(dirs)
	require.NoError(t, err)
	_, err = appdirs.Create(dirs)
	require.NoError(t, err)
}

func TestResolve_Defaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))

	dirs, err := appdirs.Resolve(appdirs.Dirs{})
	require.NoError(t, err)

	configDir, err := os.UserConfigDir()
	require.NoError(t, err)
	cacheDir, err := os.UserCacheDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(configDir, appdirs.AppName), dirs.Data)
	assert.Equal(t, filepath.Join(cacheDir, appdirs.AppName, "log"), dirs.Log)
}

func TestDirs_LogFile(t *testing.T) {
	dirs := appdirs.Dirs{Log: filepath.Join("var", "log")}

	assert.Equal(t, filepath.Join("var", "log", "daemon.log"), dirs.LogFile("daemon"))
}
