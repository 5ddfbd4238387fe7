package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tailwags/blossom/internal/config"
	"github.com/tailwags/blossom/internal/logger"
	"github.com/tailwags/blossom/internal/version"
)

// annotationSkipSettings marks commands that run without loading the settings file.
const annotationSkipSettings = "blossom/skip-settings"

var errInvalidLogLevel = errors.New("invalid log level")

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level when set.
	logLevel string

	// settings are loaded once before any subcommand runs.
	settings *config.Config

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "blossom",
		Short: "Build packages from blossom manifests.",
		Long: `Blossom builds a package from a TOML manifest.

A build downloads and verifies the declared sources, runs the build steps in order
with the staging directory available as %{pkgdir}, and packs the staging directory
into a <name>-<version>.peach archive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logLevel

			if needsSettings(cmd) {
				cfg, err := config.Load(configPath)
				if err != nil {
					return err
				}

				settings = cfg

				if level == "" {
					level = cfg.LogLevel
				}
			}

			if level == "" {
				return nil
			}

			parsed, ok := logger.ParseLogLevel(level)
			if !ok {
				return fmt.Errorf("%w: %q", errInvalidLogLevel, level)
			}

			logger.SetLevel(parsed)

			return nil
		},
	}
)

// Execute runs the blossom CLI and exits with non-zero status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), err)
		os.Exit(1)
	}
}

// needsSettings reports whether cmd reads the settings file. Commands that
// write or ignore it must work while the file is invalid.
func needsSettings(cmd *cobra.Command) bool {
	return cmd.Annotations[annotationSkipSettings] != "true" && cmd.Name() != "version"
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	version.AttachCobraVersionCommand(rootCmd)
}
