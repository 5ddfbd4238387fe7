package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/tailwags/blossom/internal/archive"
	"github.com/tailwags/blossom/internal/config"
	"github.com/tailwags/blossom/internal/logger"
	"github.com/tailwags/blossom/internal/manifest"
	"github.com/tailwags/blossom/internal/runner"
	"github.com/tailwags/blossom/internal/service/fetcher"
	"github.com/tailwags/blossom/internal/service/lock"
)

// stagingDirMode is the permission of created staging directories.
const stagingDirMode os.FileMode = 0o755

var (
	// ErrStepFailed is returned when a command step exits non-zero.
	ErrStepFailed = errors.New("build step failed")

	errDirectoryNotLocal      = errors.New("directory must be a relative path inside the staging directory")
	errStagingContainsWorkDir = errors.New("staging directory must not contain the working directory")
)

// Options are inputs accepted by the builder entry points.
type Options struct {
	// ManifestPath is the manifest to build (defaults to blossom.toml in WorkDir).
	ManifestPath string
	// Config holds build settings; nil loads them from ConfigPath.
	Config *config.Config
	// ConfigPath is the optional settings file used when Config is nil.
	ConfigPath string
	// WorkDir is where commands run and relative settings are resolved (defaults to the current directory).
	WorkDir string
	// StagingDir overrides Config.StagingDir when set.
	StagingDir string
	// SkipFetch skips downloading sources, e.g. when they are already present.
	SkipFetch bool
	// Clean removes an existing staging directory before the build.
	Clean bool
	// Stdout and Stderr receive command step output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Result describes a finished build.
type Result struct {
	// Manifest is the parsed manifest.
	Manifest *manifest.Manifest
	// ArchivePath is the written package archive.
	ArchivePath string
	// Sources lists the fetched source files in manifest order.
	Sources []string
}

// builder holds the state of one build; callers use Run or Pack.
type builder struct {
	cfg        *config.Config
	opts       *Options
	workDir    string
	stagingDir string
	sourcesDir string
	outputDir  string
	manifest   *manifest.Manifest
}

// Run executes a full build.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "build")

	b, err := newBuilder(opts)
	if err != nil {
		return nil, err
	}

	if err = b.checkStagingDir(); err != nil {
		return nil, err
	}

	buildLock, err := lock.Acquire(ctx, b.workDir)
	if err != nil {
		return nil, err
	}

	defer func() {
		if releaseErr := buildLock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release build marker", "error", releaseErr)
		}
	}()

	if err = b.loadManifest(ctx); err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "package", b.manifest.ArchiveBaseName())

	result := &Result{Manifest: b.manifest}

	if err = b.prepareStaging(ctx); err != nil {
		return nil, fmt.Errorf("prepare staging directory: %w", err)
	}

	if result.Sources, err = b.fetchSources(ctx); err != nil {
		return nil, fmt.Errorf("fetch sources: %w", err)
	}

	if err = b.runSteps(ctx); err != nil {
		return nil, err
	}

	if result.ArchivePath, err = b.pack(ctx); err != nil {
		return nil, err
	}

	logger.Info(ctx, "Build completed")

	return result, nil
}

// Pack archives an already populated staging directory without running steps.
func Pack(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "package")

	b, err := newBuilder(opts)
	if err != nil {
		return nil, err
	}

	if err = b.loadManifest(ctx); err != nil {
		return nil, err
	}

	archivePath, err := b.pack(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{Manifest: b.manifest, ArchivePath: archivePath}, nil
}

func newBuilder(opts *Options) (*builder, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}

		cfg = loaded
	} else if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}

		workDir = cwd
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	stagingDir := cfg.StagingDir
	if opts.StagingDir != "" {
		stagingDir = opts.StagingDir
	}

	return &builder{
		cfg:        cfg,
		opts:       opts,
		workDir:    workDir,
		stagingDir: resolve(workDir, stagingDir),
		sourcesDir: resolve(workDir, cfg.SourcesDir),
		outputDir:  resolve(workDir, cfg.OutputDir),
	}, nil
}

// checkStagingDir refuses a staging directory that is the working directory
// or one of its parents, since it is cleaned and filled by the build.
func (b *builder) checkStagingDir() error {
	rel, err := filepath.Rel(b.stagingDir, b.workDir)
	if err != nil {
		return nil //nolint:nilerr // Unrelated paths, e.g. on different volumes.
	}

	if rel == "." || filepath.IsLocal(rel) {
		return fmt.Errorf("%w: %s", errStagingContainsWorkDir, b.stagingDir)
	}

	return nil
}

// resolve makes path absolute relative to base.
func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(base, path)
}

func (b *builder) loadManifest(ctx context.Context) error {
	path := b.opts.ManifestPath
	if path == "" {
		path = config.DefaultManifestFilename
	}

	path = resolve(b.workDir, path)

	logger.InfoKV(ctx, "Loading manifest", "path", path)

	m, err := manifest.Load(path, manifest.WithStagingDir(b.stagingDir))
	if err != nil {
		return err
	}

	b.manifest = m

	return nil
}

// prepareStaging creates the staging directory and the manifest's directory map inside it.
func (b *builder) prepareStaging(ctx context.Context) error {
	if b.opts.Clean {
		logger.InfoKV(ctx, "Removing previous staging directory", "path", b.stagingDir)

		if err := os.RemoveAll(b.stagingDir); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(b.stagingDir, stagingDirMode); err != nil {
		return err
	}

	names := make([]string, 0, len(b.manifest.Directories))
	for name := range b.manifest.Directories {
		names = append(names, name)
	}

	slices.Sort(names)

	for _, name := range names {
		dir := b.manifest.Directories[name]
		if !filepath.IsLocal(dir) {
			return fmt.Errorf("%w: %s = %q", errDirectoryNotLocal, name, dir)
		}

		if err := os.MkdirAll(filepath.Join(b.stagingDir, dir), stagingDirMode); err != nil {
			return err
		}

		logger.DebugKV(ctx, "Created directory", "name", name, "path", dir)
	}

	return nil
}

func (b *builder) fetchSources(ctx context.Context) ([]string, error) {
	if len(b.manifest.Sources) == 0 {
		return nil, nil
	}

	if b.opts.SkipFetch {
		logger.Info(ctx, "Skipping source download")
		return nil, nil
	}

	var fetcherOpts []fetcher.Option
	if b.cfg.Progress {
		fetcherOpts = append(fetcherOpts, fetcher.WithProgress(os.Stderr))
	}

	f := fetcher.New(fetcherOpts...)

	paths := make([]string, 0, len(b.manifest.Sources))

	for _, src := range b.manifest.Sources {
		path, err := f.Fetch(ctx, src, b.sourcesDir)
		if err != nil {
			return nil, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

func (b *builder) pack(ctx context.Context) (string, error) {
	compression := b.cfg.CompressionValue()

	if err := os.MkdirAll(b.outputDir, stagingDirMode); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	logger.InfoKV(ctx, "Packing staging directory", "path", b.stagingDir, "compression", compression.String())

	archivePath, err := archive.Package(ctx, b.stagingDir, b.manifest,
		archive.WithCompression(compression),
		archive.WithOutputDir(b.outputDir))
	if err != nil {
		return "", fmt.Errorf("package: %w", err)
	}

	if info, err := os.Stat(archivePath); err == nil {
		logger.InfoKV(ctx, "Package written",
			"path", archivePath,
			"size", humanize.Bytes(uint64(info.Size()))) //nolint:gosec // File sizes are never negative.
	}

	return archivePath, nil
}

// environment returns the variables exported to command steps.
func (b *builder) environment() []string {
	return append(os.Environ(),
		"BLOSSOM_NAME="+b.manifest.Info.Name,
		"BLOSSOM_VERSION="+b.manifest.Info.Version,
		"BLOSSOM_PKGDIR="+b.stagingDir,
		"BLOSSOM_SRCDIR="+b.sourcesDir,
	)
}

// runnerOptions is the execution environment of command steps.
func (b *builder) runnerOptions() runner.Options {
	return runner.Options{
		Dir:       b.workDir,
		Env:       b.environment(),
		Stdout:    b.opts.Stdout,
		Stderr:    b.opts.Stderr,
		ShellPath: b.cfg.Shell.Path,
	}
}
