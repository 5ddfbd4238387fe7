package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailwags/blossom/internal/logger"
	"github.com/tailwags/blossom/internal/manifest"
)

const (
	// ownerName is recorded as the user and group of every entry.
	ownerName = "root"

	// archiveFileMode is the permission of the written archive.
	archiveFileMode os.FileMode = 0o644
)

var (
	// ErrStagingMissing is returned when the staging directory does not exist or is not a directory.
	ErrStagingMissing = errors.New("staging directory is missing")

	errOutputInsideStaging = errors.New("archive would be written inside the staging directory")
	errUnsupportedFileType = errors.New("unsupported file type")
)

type options struct {
	compression Compression
	outputDir   string
}

// Option customizes Package.
type Option func(*options)

// WithCompression selects the compressor.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithOutputDir sets the directory the archive is written to (default: the working directory).
func WithOutputDir(dir string) Option {
	return func(o *options) {
		o.outputDir = dir
	}
}

// Package writes every entry under stagingDir into "<name>-<version>.peach"
// and returns the archive path. Paths inside the archive are relative to
// stagingDir. A partially written archive is removed on failure.
func Package(ctx context.Context, stagingDir string, m *manifest.Manifest, opts ...Option) (string, error) {
	o := &options{
		compression: DefaultCompression,
	}

	for _, opt := range opts {
		opt(o)
	}

	stagingDir, err := filepath.Abs(stagingDir)
	if err != nil {
		return "", fmt.Errorf("resolve staging directory: %w", err)
	}

	info, err := os.Stat(stagingDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStagingMissing, err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrStagingMissing, stagingDir)
	}

	archivePath, err := resolveArchivePath(o.outputDir, stagingDir, m.ArchiveFilename())
	if err != nil {
		return "", err
	}

	entries, err := writeArchive(ctx, archivePath, stagingDir, o.compression)
	if err != nil {
		_ = os.Remove(archivePath)

		return "", err
	}

	logger.InfoKV(ctx, "Created package",
		"path", archivePath,
		"entries", entries,
		"compression", o.compression.String())

	return archivePath, nil
}

func resolveArchivePath(outputDir, stagingDir, filename string) (string, error) {
	if outputDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}

		outputDir = cwd
	}

	outputDir, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}

	archivePath := filepath.Join(outputDir, filename)

	if rel, err := filepath.Rel(stagingDir, archivePath); err == nil && filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %s", errOutputInsideStaging, archivePath)
	}

	return archivePath, nil
}

// writeArchive streams the tree into archivePath and returns the number of entries written.
func writeArchive(ctx context.Context, archivePath, stagingDir string, c Compression) (int, error) {
	file, err := os.OpenFile(filepath.Clean(archivePath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, archiveFileMode)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}

	compressor, err := newCompressor(file, c)
	if err != nil {
		_ = file.Close()

		return 0, err
	}

	tw := tar.NewWriter(compressor)

	entries, walkErr := addTree(ctx, tw, stagingDir)

	// Close in reverse order on every path so the streams are flushed before the file.
	closeErr := errors.Join(
		wrapClose("tar writer", tw.Close()),
		wrapClose("compressor", compressor.Close()),
		wrapClose("archive file", file.Close()),
	)

	if walkErr != nil {
		return 0, walkErr
	}

	if closeErr != nil {
		return 0, closeErr
	}

	return entries, nil
}

func wrapClose(what string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("close %s: %w", what, err)
}

// addTree adds every entry below root in lexical order. root itself is not an entry.
func addTree(ctx context.Context, tw *tar.Writer, root string) (int, error) {
	var entries int

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("walk staging directory: %w", walkErr)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", path, err)
		}

		if err = addEntry(tw, path, filepath.ToSlash(rel), d); err != nil {
			return err
		}

		entries++

		logger.DebugKV(ctx, "Added archive entry", "name", rel)

		return nil
	})
	if err != nil {
		return 0, err
	}

	return entries, nil
}

func addEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	var link string

	switch mode := info.Mode(); {
	case mode.IsDir(), mode.IsRegular():
	case mode&fs.ModeSymlink != 0:
		if link, err = os.Readlink(path); err != nil {
			return fmt.Errorf("read link %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s (%s)", errUnsupportedFileType, path, mode.Type())
	}

	header, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("tar header for %s: %w", path, err)
	}

	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	header.Uid, header.Gid = 0, 0
	header.Uname, header.Gname = ownerName, ownerName

	if err = tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	return copyFile(tw, path)
}

func copyFile(w io.Writer, path string) error {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err = io.Copy(w, file); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}

	return nil
}

// Entry is one member of a package archive.
type Entry struct {
	// Name is the slash-separated path; directories end with "/".
	Name string
	// Type is the tar type flag.
	Type byte
	// Size is the content length of regular files.
	Size int64
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Type == tar.TypeDir
}

// List returns the entries of the archive at path in stored order.
func List(path string) ([]Entry, Compression, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, "", fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder, compression, err := newDecompressor(file)
	if err != nil {
		return nil, "", err
	}

	defer func() {
		_ = decoder.Close()
	}()

	var (
		entries []Entry
		tr      = tar.NewReader(decoder)
	)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, "", fmt.Errorf("read archive: %w", err)
		}

		entries = append(entries, Entry{
			Name: strings.TrimPrefix(header.Name, "./"),
			Type: header.Typeflag,
			Size: header.Size,
		})
	}

	return entries, compression, nil
}
