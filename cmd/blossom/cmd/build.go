package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailwags/blossom/internal/config"
	"github.com/tailwags/blossom/internal/manifest"
	"github.com/tailwags/blossom/internal/service/builder"
	"github.com/tailwags/blossom/internal/service/inspect"
)

var (
	// stagingDir overrides the configured staging directory.
	stagingDir string
	// outputDir overrides the configured archive directory.
	outputDir string
	// compression overrides the configured archive compression.
	compression string
	// interpreter overrides the configured shell interpreter.
	interpreter string
	// stepTimeout overrides the configured per-step timeout.
	stepTimeout time.Duration
	// skipFetch disables source downloads.
	skipFetch bool
	// clean removes the staging directory before building.
	clean bool
	// listEntries prints the archive contents after packing.
	listEntries bool

	buildCmd = &cobra.Command{
		Use:   "build [manifest]",
		Short: "Build a package from a manifest.",
		Long: `Fetches and verifies sources, runs every build step in declaration order
and packs the staging directory. The manifest defaults to blossom.toml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			applyOverrides()

			options := &builder.Options{
				ManifestPath: optionalArg(args, 0),
				Config:       settings,
				StagingDir:   stagingDir,
				SkipFetch:    skipFetch,
				Clean:        clean,
				Stdout:       os.Stdout,
				Stderr:       os.Stderr,
			}

			_, err := builder.Run(ctx, options)

			return err
		},
	}

	packageCmd = &cobra.Command{
		Use:   "package <staging-dir> [manifest]",
		Short: "Pack an existing staging directory without running steps.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			applyOverrides()

			options := &builder.Options{
				ManifestPath: optionalArg(args, 1),
				Config:       settings,
				StagingDir:   args[0],
			}

			result, err := builder.Pack(ctx, options)
			if err != nil {
				return err
			}

			if !listEntries {
				return nil
			}

			return inspect.ListArchive(ctx, cmd.OutOrStdout(), result.ArchivePath)
		},
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve [manifest]",
		Short: "Print a manifest with every placeholder substituted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := optionalArg(args, 0)
			if path == "" {
				path = config.DefaultManifestFilename
			}

			dir := settings.StagingDir
			if stagingDir != "" {
				dir = stagingDir
			}

			return inspect.ResolveManifest(cmd.Context(), cmd.OutOrStdout(), path, manifest.WithStagingDir(dir))
		},
	}
)

// applyOverrides copies command line flags over the loaded settings.
func applyOverrides() {
	if outputDir != "" {
		settings.OutputDir = outputDir
	}

	if compression != "" {
		settings.Compression = compression
	}

	if interpreter != "" {
		settings.Shell.Interpreter = interpreter
	}

	if stepTimeout > 0 {
		settings.StepTimeout = stepTimeout
	}
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}

	return ""
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, c := range []*cobra.Command{buildCmd, packageCmd} {
		c.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory receiving the package archive")
		c.Flags().StringVar(&compression, "compression", "", "archive compression (gzip, zstd)")
	}

	buildCmd.Flags().StringVarP(&stagingDir, "staging-dir", "s", "", "staging directory exposed as %{pkgdir}")
	buildCmd.Flags().StringVar(&interpreter, "interpreter", "", "shell interpreter for command steps (system, embedded)")
	buildCmd.Flags().DurationVar(&stepTimeout, "step-timeout", 0, "maximum duration of a single step")
	buildCmd.Flags().BoolVar(&skipFetch, "skip-fetch", false, "do not download sources")
	buildCmd.Flags().BoolVar(&clean, "clean", false, "remove the staging directory before building")

	packageCmd.Flags().BoolVarP(&listEntries, "list", "l", false, "print the archive contents after packing")

	resolveCmd.Flags().StringVarP(&stagingDir, "staging-dir", "s", "", "staging directory exposed as %{pkgdir}")

	rootCmd.AddCommand(buildCmd, packageCmd, resolveCmd)
}
