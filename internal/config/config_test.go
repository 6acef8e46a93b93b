package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageBackend = "cloud"
	require.Error(t, cfg.Validate())
}

func TestValidate_RequiresRemoteEndpointForHybrid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageBackend = "hybrid"
	cfg.Remote.Endpoint = ""
	require.Error(t, cfg.Validate())
	cfg.Remote.Endpoint = "https://example.test"
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadDropPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.DropPolicy = "panic"
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsOutOfRangeBoostWeight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quality.BoostWeight = 1.5
	require.Error(t, cfg.Validate())
}

func TestEnvTransformer(t *testing.T) {
	require.Equal(t, "storage_backend", envTransformer("MEMENGINE_STORAGE_BACKEND"))
	require.Equal(t, "sync.queue_capacity", envTransformer("MEMENGINE_SYNC_QUEUE_CAPACITY"))
}

func TestLoadWithFile_RejectsPathOutsideAllowedDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_backend: local\n"), 0600))
	_, err := LoadWithFile(path)
	require.Error(t, err)
}

func TestLoadWithFile_DefaultsWhenAbsent(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	require.Equal(t, "local", cfg.StorageBackend)
}
