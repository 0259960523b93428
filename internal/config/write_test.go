// internal/config/write_test.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDefault(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "spotarr", "config.toml")

	err := WriteDefault(path, false)
	require.NoError(t, err, "WriteDefault failed")

	content, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read written file")

	// Check for key sections
	assert.Contains(t, string(content), "[server]")
	assert.Contains(t, string(content), "[downloads.output]")
	assert.Contains(t, string(content), "${PLEX_TOKEN}")
	assert.Equal(t, DefaultContent(), string(content))
}

func TestWriteDefault_CreatesDir(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "deep", "config.toml")

	err := WriteDefault(path, false)
	require.NoError(t, err, "WriteDefault failed")

	_, err = os.Stat(path)
	assert.False(t, os.IsNotExist(err), "file was not created")
}

func TestWriteDefault_Exists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("# mine"), 0644))

	err := WriteDefault(path, false)
	assert.True(t, errors.Is(err, ErrExists))

	content, _ := os.ReadFile(path)
	assert.Equal(t, "# mine", string(content))

	require.NoError(t, WriteDefault(path, true))
	content, _ = os.ReadFile(path)
	assert.Equal(t, DefaultContent(), string(content))
}

func TestConfig_Write(t *testing.T) {
	cfg := &Config{
		Server:    ServerConfig{Host: "127.0.0.1", Port: 9000},
		Downloads: DownloadsConfig{Output: OutputConfig{Track: "/media/music"}},
	}

	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.toml")

	err := cfg.Write(path)
	require.NoError(t, err, "Write failed")

	loaded, err := LoadWithoutValidation(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", loaded.Server.Host)
	assert.Equal(t, 9000, loaded.Server.Port)
	assert.Equal(t, "/media/music", loaded.Downloads.Output.Track)
}
