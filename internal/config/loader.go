// internal/config/loader.go
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (MEMENGINE_STORAGE_BACKEND, MEMENGINE_SYNC_QUEUE_CAPACITY, ...)
//  2. YAML config file (~/.config/memengine/config.yaml by default)
//  3. Hardcoded defaults
//
// File permissions must be 0600 or 0400; the path must live under
// ~/.config/memengine/ or /etc/memengine/; size is capped at 1MB. The
// permission and size checks run against the already-opened file
// descriptor to avoid a TOCTOU race between validation and read; the path
// check runs on the path before the file is opened.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "memengine", "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// MEMENGINE_STORAGE_BACKEND -> storage_backend
	// MEMENGINE_SYNC_QUEUE_CAPACITY -> sync.queue_capacity
	if err := k.Load(env.Provider("MEMENGINE_", ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envTransformer maps MEMENGINE_SYNC_QUEUE_CAPACITY to sync.queue_capacity
// and MEMENGINE_STORAGE_BACKEND to storage_backend: strip the prefix and
// lowercase; a name that starts with a config section name and an
// underscore becomes section.field, anything else stays a top-level key.
func envTransformer(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, "MEMENGINE_"))
	for _, section := range []string{"remote", "sync", "quality", "schedule", "consolidation", "github_publisher"} {
		if strings.HasPrefix(lower, section+"_") {
			return section + "." + strings.TrimPrefix(lower, section+"_")
		}
	}
	return lower
}

// DefaultConfig returns a Config with production-ready defaults for every
// field, so a caller that loads no file and sets no environment variables
// still gets a valid, runnable configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "memengine")
	return &Config{
		StorageBackend: "local",
		EmbeddingModel: "BAAI/bge-small-en-v1.5",
		EmbeddingDim:   384,
		DataDir:        dataDir,
		Remote: RemoteConfig{
			VectorIndex: "memengine_default",
			KVNamespace: "memengine_default",
		},
		Sync: SyncConfig{
			QueueCapacity:      4096,
			DropPolicy:         "drop_oldest",
			BlockWriterTimeout: Duration(0),
			RetryBaseMs:        250,
			RetryCapMs:         30_000,
			PauseOnConsolidate: true,
		},
		Quality: QualityConfig{
			SystemEnabled:    true,
			AIProvider:       "auto",
			LocalModel:       "cross-encoder/ms-marco-MiniLM-L-6-v2",
			Device:           "cpu",
			BoostEnabled:     true,
			BoostWeight:      0.5,
			RetentionHigh:    365,
			RetentionMedium:  180,
			RetentionLowMin:  30,
			RetentionLowMax:  90,
			FallbackEnabled:  true,
			DebertaThreshold: 0.7,
			MsmarcoThreshold: 0.5,
			AIScoresCap:      20,
		},
		Schedule: ScheduleConfig{
			Daily:     "0 2 * * *",
			Weekly:    "0 3 * * 0",
			Monthly:   "0 4 1 * *",
			Quarterly: "disabled",
			Yearly:    "disabled",
		},
		Consolidation: ConsolidationConfig{
			Enabled:             true,
			SimilarityThreshold: 0.8,
			TagJaccardThreshold: 0.5,
			ScoreRefreshAfter:   Duration(30 * 24 * time.Hour),
			MaxClustersPerRun:   0,
			ReportsDir:          filepath.Join(dataDir, "reports"),
		},
	}
}

// EnsureConfigDir creates the memengine config directory if it doesn't
// exist, with 0700 permissions (owner read/write/execute only).
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(home, ".config", "memengine")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}
	return nil
}

// validateConfigPath checks that path resolves into an allowed directory,
// even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "memengine"),
		"/etc/memengine",
	}

	for _, dir := range allowedDirs {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/memengine/ or /etc/memengine/")
}

// validateConfigFileProperties checks permissions and size on an
// already-opened file descriptor's FileInfo.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
