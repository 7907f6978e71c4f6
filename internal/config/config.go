package config

import (
	"fmt"
	"time"
)

// Config represents the application configuration
type Config struct {
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Install InstallConfig `mapstructure:"install" yaml:"install"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// NetworkConfig contains HTTP client settings
type NetworkConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	CloneFallback bool          `mapstructure:"clone_fallback" yaml:"clone_fallback"`
}

// OutputConfig contains extraction output settings
type OutputConfig struct {
	KeepRoot  bool `mapstructure:"keep_root" yaml:"keep_root"`
	Overwrite bool `mapstructure:"overwrite" yaml:"overwrite"`
}

// CacheConfig contains settings for the resolved-ref cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
}

// InstallConfig contains installer bridge settings
type InstallConfig struct {
	Python  string        `mapstructure:"python" yaml:"python"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Upgrade bool          `mapstructure:"upgrade" yaml:"upgrade"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration and clamps out-of-range values
func (c *Config) Validate() error {
	if c.Network.Timeout < time.Second {
		c.Network.Timeout = DefaultTimeout
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("network.max_retries must not be negative")
	}
	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Install.Timeout < time.Second {
		c.Install.Timeout = DefaultInstallTimeout
	}
	return nil
}
