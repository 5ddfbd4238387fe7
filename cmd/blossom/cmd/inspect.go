package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/tailwags/blossom/internal/checksum"
	"github.com/tailwags/blossom/internal/config"
	"github.com/tailwags/blossom/internal/service/inspect"
)

var errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

var (
	// algorithm used by the checksum command.
	algorithm string
	// force overwrites an existing configuration file.
	force bool

	verifyCmd = &cobra.Command{
		Use:   "verify <file> <checksum>",
		Short: "Verify a file against an <algorithm>:<hex> checksum.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect.Verify(cmd.Context(), args[0], args[1])
		},
	}

	checksumCmd = &cobra.Command{
		Use:   "checksum <file>",
		Short: "Print the checksum of a file in manifest format.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect.Checksum(cmd.Context(), cmd.OutOrStdout(), args[0], checksum.Algorithm(algorithm))
		},
	}

	listCmd = &cobra.Command{
		Use:   "list <archive>",
		Short: "List the contents of a package archive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect.ListArchive(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info <name>",
		Short: "Show information about an installed package.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect.Info(cmd.Context(), args[0])
		},
	}

	uninstallCmd = &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove an installed package.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect.Uninstall(cmd.Context(), args[0])
		},
	}

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default settings.",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			annotationSkipSettings: "true",
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return errConfigExists
			}

			return config.Save(configPath, config.Default())
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checksumCmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(checksum.BLAKE3), "digest algorithm (blake3, sha256)")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")

	rootCmd.AddCommand(verifyCmd, checksumCmd, listCmd, infoCmd, uninstallCmd, initCmd)
}
