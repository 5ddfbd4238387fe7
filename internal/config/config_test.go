package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailwags/blossom/internal/archive"
	"github.com/tailwags/blossom/internal/runner"
)

// TestValidate checks required fields, defaults and value validation.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	cfg := Default()
	cfg.StagingDir = ""
	require.ErrorIs(t, Validate(cfg), errEmptyDirectories)

	cfg = Default()
	cfg.LogLevel = "loud"
	require.ErrorIs(t, Validate(cfg), errInvalidLogLevel)

	cfg = Default()
	cfg.Compression = "lzma"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.Shell.Interpreter = "fish"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.StepTimeout = -time.Second
	require.ErrorIs(t, Validate(cfg), errNegativeTimeout)

	cfg = Default()
	cfg.OutputDir = ""
	cfg.Shell.Path = ""
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultOutputDir, cfg.OutputDir)
	require.Equal(t, runner.DefaultShellPath, cfg.Shell.Path)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blossom.yaml")

	cfg := Default()
	cfg.Compression = string(archive.Zstd)
	cfg.StepTimeout = 90 * time.Second
	cfg.Shell.Interpreter = string(runner.InterpreterEmbedded)
	cfg.Progress = false

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
	require.Equal(t, archive.Zstd, loaded.CompressionValue())
	require.Equal(t, runner.InterpreterEmbedded, loaded.InterpreterValue())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoadMissingFileUsesDefaults ensures a missing settings file is tolerated.
func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestLoadEnvironmentOverrides ensures BLOSSOM_* variables take precedence over the file.
func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("BLOSSOM_COMPRESSION", "zstd")
	t.Setenv("BLOSSOM_SHELL_INTERPRETER", "embedded")

	path := filepath.Join(t.TempDir(), "blossom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compression: gzip\nstaging_dir: out\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "zstd", cfg.Compression)
	require.Equal(t, "embedded", cfg.Shell.Interpreter)
	require.Equal(t, "out", cfg.StagingDir)
}

// TestLoadInvalidFile reports malformed YAML.
func TestLoadInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blossom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compression: [unclosed\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

// TestSaveNil rejects a nil configuration.
func TestSaveNil(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Save(filepath.Join(t.TempDir(), "x.yaml"), nil), errConfigIsNotSet)
}
