package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/binhbb2204/litverse/cli/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoadAndToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LITVERSE_HOME", dir)
	t.Setenv("LITVERSE_SERVER", "")

	require.NoError(t, config.Init())
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.Server.URL)
	assert.Equal(t, filepath.Join(dir, "litverse.db"), cfg.Database.Path)

	require.NoError(t, config.UpdateUserToken("u1", "reader", "tok"))
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, "reader", cfg.User.Username)
	assert.Equal(t, "tok", cfg.User.Token)

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, config.Init(), "init keeps an existing config")
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.User.Token)

	require.NoError(t, config.ClearUserToken())
	cfg, err = config.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.User.Token)
}

func TestGetServerURL(t *testing.T) {
	t.Setenv("LITVERSE_HOME", t.TempDir())
	t.Setenv("LITVERSE_SERVER", "")

	_, err := config.GetServerURL()
	assert.Error(t, err, "no config yet")

	require.NoError(t, config.Init())
	url, err := config.GetServerURL()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", url)

	t.Setenv("LITVERSE_SERVER", "http://api.example.com/")
	url, err = config.GetServerURL()
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", url)
}
