package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from file, environment, and defaults.
// Uses the global viper instance to access CLI flag bindings.
func Load() (*Config, error) {
	v := viper.GetViper()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Environment variables (SPCLONE_*)
	v.SetEnvPrefix("SPCLONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("network.timeout", DefaultTimeout)
	v.SetDefault("network.max_retries", DefaultMaxRetries)
	v.SetDefault("network.user_agent", "")
	v.SetDefault("network.clone_fallback", true)

	v.SetDefault("output.keep_root", false)
	v.SetDefault("output.overwrite", false)

	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.directory", CacheDir())

	v.SetDefault("install.python", "")
	v.SetDefault("install.timeout", DefaultInstallTimeout)
	v.SetDefault("install.upgrade", true)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(ConfigDir(), 0755)
}

// WriteDefault writes the default configuration to the config file path.
// Fails when the file already exists unless overwrite is set.
func WriteDefault(overwrite bool) (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	path := ConfigFilePath()
	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
