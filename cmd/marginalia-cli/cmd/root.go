package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marginalia/internal/config"
	"marginalia/internal/logger"
	"marginalia/internal/service"
)

var (
	configPath string
	profile    string
	logLevel   string

	svc           *service.Service
	closeLogger   func()
	loadedProfile string
)

var rootCmd = &cobra.Command{
	Use:   "marginalia-cli",
	Short: "Track files by identity and keep their metadata in sync",
	Long: `marginalia-cli keeps a metadata index of files keyed by a stable content
identifier. Files can be renamed and relocated through the index; the
reconciliation engine then moves them on disk and reverts the index when a
move cannot happen.

Configuration is read from $XDG_CONFIG_HOME/marginalia/config.yaml and
MARGINALIA_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if profile != "" {
			cfg.Database.Profile = profile
			cfg.Database.Path = config.DatabasePath(profile)
			cfg.Identity.SidecarPath = ""
			if err := config.ApplyDefaults(cfg); err != nil {
				return err
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		log, cleanup, err := logger.New(cfg.Logging)
		if err != nil {
			return err
		}
		closeLogger = cleanup

		svc, err = service.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		loadedProfile = cfg.Database.Profile
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
}

func shutdown() error {
	var err error
	if svc != nil {
		err = svc.Close()
		svc = nil
	}
	if closeLogger != nil {
		closeLogger()
		closeLogger = nil
	}
	return err
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if cerr := shutdown(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "database profile")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
}

// GetService returns the initialized service
func GetService() *service.Service {
	return svc
}
