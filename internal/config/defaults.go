package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Network defaults
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 0 // Single attempt; retries are opt-in

	// Cache defaults
	DefaultCacheEnabled = true
	DefaultCacheTTL     = 24 * time.Hour

	// Install defaults
	DefaultInstallTimeout = 30 * time.Minute

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spclone"
	}
	return filepath.Join(home, ".spclone")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			Timeout:       DefaultTimeout,
			MaxRetries:    DefaultMaxRetries,
			UserAgent:     "",
			CloneFallback: true,
		},
		Output: OutputConfig{
			KeepRoot:  false,
			Overwrite: false,
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			TTL:       DefaultCacheTTL,
			Directory: CacheDir(),
		},
		Install: InstallConfig{
			Python:  "",
			Timeout: DefaultInstallTimeout,
			Upgrade: true,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
