package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	Reset()
	t.Cleanup(Reset)
	return dir
}

func TestLoad_Default(t *testing.T) {
	setupTestConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	assert.True(t, cfg.Preferences.ColorOutput)
	assert.Nil(t, cfg.GetCurrentUser())
}

func TestConfig_SetCurrentUser(t *testing.T) {
	dir := setupTestConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	user := &UserInfo{
		Username: "ada@example.com",
		Name:     "Ada Lovelace",
		UserID:   "u1",
		TenantID: "t1",
	}
	require.NoError(t, cfg.SetCurrentUser(user))

	assert.Equal(t, user, cfg.GetCurrentUser())
	assert.FileExists(t, filepath.Join(dir, "mstodo", "config.json"))

	// A fresh load sees the persisted user
	Reset()
	reloaded, err := Load()
	require.NoError(t, err)
	require.NotNil(t, reloaded.GetCurrentUser())
	assert.Equal(t, "ada@example.com", reloaded.GetCurrentUser().Username)
}

func TestConfig_ClearCurrentUser(t *testing.T) {
	setupTestConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.NoError(t, cfg.SetCurrentUser(&UserInfo{Username: "ada@example.com"}))
	require.NoError(t, cfg.SetDefaultListID("l1"))

	require.NoError(t, cfg.ClearCurrentUser())

	assert.Nil(t, cfg.GetCurrentUser())
	assert.Empty(t, cfg.GetDefaultListID(), "default list is account-specific and cleared with the user")
}

func TestConfig_DefaultListID(t *testing.T) {
	setupTestConfig(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.GetDefaultListID())
	require.NoError(t, cfg.SetDefaultListID("l42"))
	assert.Equal(t, "l42", cfg.GetDefaultListID())
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := setupTestConfig(t)

	path := filepath.Join(dir, "mstodo", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}
