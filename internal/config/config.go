package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tailwags/blossom/internal/archive"
	"github.com/tailwags/blossom/internal/logger"
	"github.com/tailwags/blossom/internal/manifest"
	"github.com/tailwags/blossom/internal/runner"
)

// Config holds build settings.
type Config struct {
	// StagingDir is where steps assemble the package tree (%{pkgdir}).
	StagingDir string `yaml:"staging_dir" mapstructure:"staging_dir"`
	// OutputDir receives the finished archive.
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	// SourcesDir receives downloaded sources.
	SourcesDir string `yaml:"sources_dir" mapstructure:"sources_dir"`
	// Compression is the archive compressor: gzip or zstd.
	Compression string `yaml:"compression" mapstructure:"compression"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// StepTimeout bounds each command step; zero disables the limit.
	StepTimeout time.Duration `yaml:"step_timeout" mapstructure:"step_timeout"`
	// Progress shows download progress bars.
	Progress bool `yaml:"progress" mapstructure:"progress"`
	// Shell configures the shell runner.
	Shell Shell `yaml:"shell" mapstructure:"shell"`
}

// Shell configures how "shell" command steps are executed.
type Shell struct {
	// Interpreter is "system" (the shell binary at Path) or "embedded".
	Interpreter string `yaml:"interpreter" mapstructure:"interpreter"`
	// Path is the shell binary used by the system interpreter.
	Path string `yaml:"path" mapstructure:"path"`
}

const (
	// DefaultConfigFilename is the default settings file.
	DefaultConfigFilename = "blossom.yaml"

	// DefaultManifestFilename is the manifest read when none is given.
	DefaultManifestFilename = "blossom.toml"

	// DefaultSourcesDir is where sources are downloaded, relative to the working directory.
	DefaultSourcesDir = "sources"

	// DefaultOutputDir is where archives are written.
	DefaultOutputDir = "."

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the permission of saved settings files.
	DefaultFilePermissions = 0o600

	envPrefix = "BLOSSOM"
)

var (
	errConfigIsNotSet   = errors.New("configuration is not set")
	errInvalidLogLevel  = errors.New("invalid log level")
	errNegativeTimeout  = errors.New("step timeout must not be negative")
	errEmptyDirectories = errors.New("staging and sources directories must be set")
)

// Default returns a Config populated with defaults.
func Default() *Config {
	return &Config{
		StagingDir:  manifest.DefaultStagingDir,
		OutputDir:   DefaultOutputDir,
		SourcesDir:  DefaultSourcesDir,
		Compression: string(archive.DefaultCompression),
		LogLevel:    DefaultLogLevel,
		Progress:    true,
		Shell: Shell{
			Interpreter: string(runner.InterpreterSystem),
			Path:        runner.DefaultShellPath,
		},
	}
}

// Load reads settings from path (DefaultConfigFilename when empty), applies
// BLOSSOM_* environment overrides and validates the result. A missing file
// is not an error: defaults and environment still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(filepath.Clean(path))
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("staging_dir", d.StagingDir)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("sources_dir", d.SourcesDir)
	v.SetDefault("compression", d.Compression)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("step_timeout", d.StepTimeout)
	v.SetDefault("progress", d.Progress)
	v.SetDefault("shell.interpreter", d.Shell.Interpreter)
	v.SetDefault("shell.path", d.Shell.Path)
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks settings and fills empty optional fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.StagingDir == "" || cfg.SourcesDir == "" {
		return errEmptyDirectories
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.LogLevel)
	}

	if cfg.StepTimeout < 0 {
		return errNegativeTimeout
	}

	if _, err := archive.ParseCompression(cfg.Compression); err != nil {
		return err
	}

	if _, err := runner.ParseInterpreter(cfg.Shell.Interpreter); err != nil {
		return err
	}

	if cfg.Shell.Path == "" {
		cfg.Shell.Path = runner.DefaultShellPath
	}

	return nil
}

// CompressionValue returns the parsed compression. Call after Validate.
func (c *Config) CompressionValue() archive.Compression {
	compression, err := archive.ParseCompression(c.Compression)
	if err != nil {
		return archive.DefaultCompression
	}

	return compression
}

// InterpreterValue returns the parsed shell interpreter. Call after Validate.
func (c *Config) InterpreterValue() runner.Interpreter {
	interpreter, err := runner.ParseInterpreter(c.Shell.Interpreter)
	if err != nil {
		return runner.InterpreterSystem
	}

	return interpreter
}
