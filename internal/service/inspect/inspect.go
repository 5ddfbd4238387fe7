package inspect

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/tailwags/blossom/internal/archive"
	"github.com/tailwags/blossom/internal/checksum"
	"github.com/tailwags/blossom/internal/logger"
	"github.com/tailwags/blossom/internal/manifest"
)

// Verify checks the file at path against a "<algorithm>:<hex digest>" checksum.
func Verify(ctx context.Context, path, expected string) error {
	ctx = logger.WithName(ctx, "verify")

	ok, err := checksum.Verify(path, expected)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %s", checksum.ErrMismatch, path)
	}

	logger.InfoKV(ctx, "Checksum matches", "path", path)

	return nil
}

// Checksum writes the "<algorithm>:<hex digest>" line for the file at path to w.
func Checksum(ctx context.Context, w io.Writer, path string, algorithm checksum.Algorithm) error {
	logger.DebugKV(ctx, "Computing checksum", "path", path, "algorithm", string(algorithm))

	line, err := checksum.File(path, algorithm)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, line)

	return err
}

// ResolveManifest parses the manifest at path and writes it back with every
// placeholder substituted.
func ResolveManifest(ctx context.Context, w io.Writer, path string, opts ...manifest.Option) error {
	logger.DebugKV(ctx, "Resolving manifest", "path", path)

	m, err := manifest.Load(path, opts...)
	if err != nil {
		return err
	}

	data, err := manifest.Encode(m)
	if err != nil {
		return err
	}

	_, err = w.Write(data)

	return err
}

// ListArchive writes one line per entry of the package archive at path.
func ListArchive(ctx context.Context, w io.Writer, path string) error {
	entries, compression, err := archive.List(path)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Listing archive", "path", path, "compression", compression.String(), "entries", len(entries))

	var total int64

	for _, entry := range entries {
		total += entry.Size

		size := "-"
		if !entry.IsDir() {
			size = humanize.Bytes(uint64(entry.Size)) //nolint:gosec // Entry sizes are never negative.
		}

		if _, err = fmt.Fprintf(w, "%10s  %s\n", size, entry.Name); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "%d entries, %s\n", len(entries), humanize.Bytes(uint64(total))) //nolint:gosec // Sum of sizes.

	return err
}

// Info reports an installed package. Installed-package tracking is not
// implemented yet, so it only logs the request.
func Info(ctx context.Context, name string) error {
	logger.InfoKV(logger.WithName(ctx, "info"), "Package information requested", "package", strings.TrimSpace(name))

	return nil
}

// Uninstall removes an installed package. Installed-package tracking is not
// implemented yet, so it only logs the request.
func Uninstall(ctx context.Context, name string) error {
	logger.InfoKV(logger.WithName(ctx, "uninstall"), "Package removal requested", "package", strings.TrimSpace(name))

	return nil
}
