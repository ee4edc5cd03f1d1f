// Package config loads application configuration using Viper from a YAML
// file (.standards.yml by default), environment variables with the
// STANDARDS_ prefix, and bound command-line flags, in ascending precedence.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	stderrors "github.com/menoncello/coding-standard-sub000/internal/errors"
	"github.com/menoncello/coding-standard-sub000/internal/reload"
	"github.com/menoncello/coding-standard-sub000/internal/watcher"
)

// Config is the root application configuration.
type Config struct {
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
	Reload ReloadConfig `mapstructure:"reload" yaml:"reload"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Roots          []string `mapstructure:"roots" yaml:"roots"`
	Extensions     []string `mapstructure:"extensions" yaml:"extensions"`
	IgnorePatterns []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`
	DebounceMs     int      `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	ThrottleMs     int      `mapstructure:"throttle_ms" yaml:"throttle_ms"`
	MaxBatchWaitMs int      `mapstructure:"max_batch_wait_ms" yaml:"max_batch_wait_ms"`
	MaxConcurrency int      `mapstructure:"max_concurrency" yaml:"max_concurrency"`
}

// ReloadConfig configures the reload orchestrator.
type ReloadConfig struct {
	Enabled                 bool   `mapstructure:"enabled" yaml:"enabled"`
	ValidateBeforeUpdate    bool   `mapstructure:"validate_before_update" yaml:"validate_before_update"`
	EnableRollback          bool   `mapstructure:"enable_rollback" yaml:"enable_rollback"`
	MaxConcurrentOperations int    `mapstructure:"max_concurrent_operations" yaml:"max_concurrent_operations"`
	OperationTimeoutMs      int    `mapstructure:"operation_timeout_ms" yaml:"operation_timeout_ms"`
	ConflictResolution      string `mapstructure:"conflict_resolution" yaml:"conflict_resolution"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers every configuration default on the given viper
// instance.
func SetDefaults(v *viper.Viper) {
	watchDefaults := watcher.DefaultConfig()
	reloadDefaults := reload.DefaultConfig()

	v.SetDefault("watch.roots", []string{"./standards"})
	v.SetDefault("watch.extensions", watchDefaults.Extensions)
	v.SetDefault("watch.ignore_patterns", watchDefaults.IgnorePatterns)
	v.SetDefault("watch.debounce_ms", int(watchDefaults.Debounce/time.Millisecond))
	v.SetDefault("watch.throttle_ms", int(watchDefaults.Throttle/time.Millisecond))
	v.SetDefault("watch.max_batch_wait_ms", int(watchDefaults.MaxBatchWait/time.Millisecond))
	v.SetDefault("watch.max_concurrency", watchDefaults.MaxConcurrency)

	v.SetDefault("reload.enabled", reloadDefaults.Enabled)
	v.SetDefault("reload.validate_before_update", reloadDefaults.ValidateBeforeUpdate)
	v.SetDefault("reload.enable_rollback", reloadDefaults.EnableRollback)
	v.SetDefault("reload.max_concurrent_operations", reloadDefaults.MaxConcurrentOperations)
	v.SetDefault("reload.operation_timeout_ms", int(reloadDefaults.OperationTimeout/time.Millisecond))
	v.SetDefault("reload.conflict_resolution", string(reloadDefaults.OnConflict))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from the given file (optional), the environment,
// and defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".standards")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("STANDARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit one is not.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "reading config file: "+err.Error())
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, stderrors.NewConfigError(stderrors.ErrCodeConfigInvalid, "decoding config: "+err.Error())
	}
	return &config, nil
}

// WatcherConfig converts the loaded settings into a watcher.Config.
func (c *Config) WatcherConfig() watcher.Config {
	return watcher.Config{
		Roots:          c.Watch.Roots,
		Extensions:     c.Watch.Extensions,
		IgnorePatterns: c.Watch.IgnorePatterns,
		Debounce:       time.Duration(c.Watch.DebounceMs) * time.Millisecond,
		Throttle:       time.Duration(c.Watch.ThrottleMs) * time.Millisecond,
		MaxBatchWait:   time.Duration(c.Watch.MaxBatchWaitMs) * time.Millisecond,
		MaxConcurrency: c.Watch.MaxConcurrency,
	}
}

// ReloadConfig converts the loaded settings into a reload.Config.
func (c *Config) ReloadConfig() reload.Config {
	return reload.Config{
		Enabled:                 c.Reload.Enabled,
		ValidateBeforeUpdate:    c.Reload.ValidateBeforeUpdate,
		EnableRollback:          c.Reload.EnableRollback,
		MaxConcurrentOperations: c.Reload.MaxConcurrentOperations,
		OperationTimeout:        time.Duration(c.Reload.OperationTimeoutMs) * time.Millisecond,
		OnConflict:              reload.ConflictResolution(c.Reload.ConflictResolution),
	}
}
