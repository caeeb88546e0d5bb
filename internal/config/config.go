// Package config loads marginalia settings from a YAML file, MARGINALIA_*
// environment variables and built-in defaults.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultProfile names the database used when no profile is selected
const DefaultProfile = "default"

// Config is the complete configuration
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`

	// Roots are the directories scanned by default
	Roots []string `mapstructure:"roots" validate:"dive,startswith=/"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" validate:"required,oneof=console json"`
	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// DatabaseConfig locates the metadata database
type DatabaseConfig struct {
	// Profile selects a database under the data directory when Path is empty
	Profile      string `mapstructure:"profile" validate:"required"`
	Path         string `mapstructure:"path" validate:"required"`
	ReadPoolSize int    `mapstructure:"read_pool_size" validate:"gte=1,lte=64"`
}

// IdentityConfig controls where content identifiers are persisted
type IdentityConfig struct {
	Attribute      string `mapstructure:"attribute" validate:"required,startswith=user."`
	SidecarEnabled bool   `mapstructure:"sidecar_enabled"`
	SidecarPath    string `mapstructure:"sidecar_path" validate:"required_if=SidecarEnabled true"`
}

// ReconcileConfig tunes the reconciliation engine
type ReconcileConfig struct {
	Interval        time.Duration    `mapstructure:"interval" validate:"gt=0"`
	Window          time.Duration    `mapstructure:"window" validate:"gte=0"`
	MaxItemsPerPass int              `mapstructure:"max_items_per_pass" validate:"gte=0"`
	Workers         int              `mapstructure:"workers" validate:"gte=1,lte=64"`
	PruneAfter      time.Duration    `mapstructure:"prune_after" validate:"gte=0"`
	Compensate      CompensateConfig `mapstructure:"compensate"`
}

// CompensateConfig selects the failure kinds that revert the index
type CompensateConfig struct {
	SourceMissing         bool `mapstructure:"source_missing"`
	DestinationExists     bool `mapstructure:"destination_exists"`
	DestinationDirMissing bool `mapstructure:"destination_dir_missing"`
	MoveFailed            bool `mapstructure:"move_failed"`
	EntryMissing          bool `mapstructure:"entry_missing"`
}

// CacheConfig bounds the listing cache
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries" validate:"gte=1"`
	TTL        time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address" validate:"required_if=Enabled true"`
}

// Load reads configuration from configPath, or from the default location
// when it is empty. A missing default file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("MARGINALIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(ConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// ConfigDir returns $XDG_CONFIG_HOME/marginalia or ~/.config/marginalia
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns $XDG_DATA_HOME/marginalia or ~/.local/share/marginalia
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "marginalia")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, fallback, "marginalia")
}

// DatabasePath returns the database file for a profile. Profile names are
// hashed so any string is a safe file name.
func DatabasePath(profile string) string {
	sum := sha256.Sum256([]byte(profile))
	return filepath.Join(DataDir(), hex.EncodeToString(sum[:8])+".db")
}
