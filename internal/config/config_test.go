package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"MEDLENS_SERVER", "MEDLENS_CREDENTIAL_STORE", "MEDLENS_UPLOAD_HEADERS", "MEDLENS_TIMEOUT", "MEDLENS_LOG_LEVEL", "MEDLENS_LOG_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.ServerURL)
	assert.Equal(t, "keyring", cfg.Credentials.Backend)
	assert.Equal(t, "both", cfg.Transport.UploadHeaders)
	assert.Equal(t, DefaultTimeout, cfg.Transport.Timeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MEDLENS_SERVER", "https://api.example.com/")
	t.Setenv("MEDLENS_CREDENTIAL_STORE", "FILE")
	t.Setenv("MEDLENS_UPLOAD_HEADERS", "caller")
	t.Setenv("MEDLENS_TIMEOUT", "5s")
	t.Setenv("MEDLENS_LOG_LEVEL", "debug")
	t.Setenv("MEDLENS_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.ServerURL)
	assert.Equal(t, "file", cfg.Credentials.Backend)
	assert.Equal(t, "caller", cfg.Transport.UploadHeaders)
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_InvalidValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Run("credential store", func(t *testing.T) {
		t.Setenv("MEDLENS_CREDENTIAL_STORE", "vault")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MEDLENS_CREDENTIAL_STORE")
	})

	t.Run("upload headers", func(t *testing.T) {
		t.Setenv("MEDLENS_UPLOAD_HEADERS", "none")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MEDLENS_UPLOAD_HEADERS")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Setenv("MEDLENS_TIMEOUT", "soon")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MEDLENS_TIMEOUT")
	})
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	// godotenv never overrides variables that are already present
	t.Setenv("MEDLENS_SERVER", "")
	require.NoError(t, os.Unsetenv("MEDLENS_SERVER"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MEDLENS_SERVER=http://10.0.0.5:8080\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8080", cfg.ServerURL)
}
