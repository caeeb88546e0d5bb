package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers every key so environment variables can override
// keys absent from the file
func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("database.profile", DefaultProfile)
	v.SetDefault("database.path", "")
	v.SetDefault("database.read_pool_size", 4)

	v.SetDefault("identity.attribute", "user.marginalia.content-id")
	v.SetDefault("identity.sidecar_enabled", true)
	v.SetDefault("identity.sidecar_path", "")

	v.SetDefault("reconcile.interval", 2*time.Second)
	v.SetDefault("reconcile.window", 5*time.Second)
	v.SetDefault("reconcile.max_items_per_pass", 500)
	v.SetDefault("reconcile.workers", 4)
	v.SetDefault("reconcile.prune_after", 30*24*time.Hour)
	v.SetDefault("reconcile.compensate.source_missing", false)
	v.SetDefault("reconcile.compensate.destination_exists", true)
	v.SetDefault("reconcile.compensate.destination_dir_missing", true)
	v.SetDefault("reconcile.compensate.move_failed", true)
	v.SetDefault("reconcile.compensate.entry_missing", false)

	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.ttl", 0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9464")

	v.SetDefault("roots", []string{})
}

// ApplyDefaults normalizes values and derives paths left empty
func ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = strings.ToUpper(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))

	if cfg.Database.Profile == "" {
		cfg.Database.Profile = DefaultProfile
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = DatabasePath(cfg.Database.Profile)
	}
	if cfg.Identity.SidecarEnabled && cfg.Identity.SidecarPath == "" {
		cfg.Identity.SidecarPath = strings.TrimSuffix(cfg.Database.Path, ".db") + ".sidecar"
	}

	var err error
	if cfg.Database.Path, err = expand(cfg.Database.Path); err != nil {
		return err
	}
	if cfg.Identity.SidecarPath, err = expand(cfg.Identity.SidecarPath); err != nil {
		return err
	}
	for i, root := range cfg.Roots {
		if cfg.Roots[i], err = expandHome(root); err != nil {
			return err
		}
	}
	return nil
}

// expandHome resolves a leading "~" and cleans the path. Relative roots are
// left relative so validation rejects them.
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}

func expand(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	path, err := expandHome(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(path)
}
