package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/tailwags/blossom/internal/checksum"
	"github.com/tailwags/blossom/internal/logger"
	"github.com/tailwags/blossom/internal/manifest"
)

const (
	// sourceDirMode is the permission of the sources directory.
	sourceDirMode os.FileMode = 0o755

	// descDownloading labels download progress bars.
	descDownloading = "Downloading"
)

var (
	errBadHTTPStatus     = errors.New("unexpected http status")
	errUnsupportedScheme = errors.New("unsupported source url scheme")
	errInvalidSourceName = errors.New("cannot derive a file name from source url")
)

// Fetcher retrieves sources into a directory.
type Fetcher struct {
	client   *http.Client
	progress io.Writer
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithProgress renders download progress bars to w.
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) {
		f.progress = w
	}
}

// New returns a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch stores src in dir under src.Filename() and verifies its checksum.
// On any failure the partially written file is removed.
func (f *Fetcher) Fetch(ctx context.Context, src manifest.Source, dir string) (string, error) {
	name := src.Filename()
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: %s", errInvalidSourceName, src.URL)
	}

	if err := os.MkdirAll(dir, sourceDirMode); err != nil {
		return "", fmt.Errorf("create sources directory: %w", err)
	}

	path := filepath.Join(dir, name)

	logger.InfoKV(ctx, "Fetching source", "url", src.URL, "path", path)

	if err := f.retrieve(ctx, src.URL, path); err != nil {
		_ = os.Remove(path)

		return "", err
	}

	ok, err := checksum.Verify(path, src.Checksum)
	if err != nil {
		_ = os.Remove(path)

		return "", fmt.Errorf("verify %s: %w", name, err)
	}

	if !ok {
		_ = os.Remove(path)

		return "", fmt.Errorf("%w: %s (expected %s)", checksum.ErrMismatch, src.URL, src.Checksum)
	}

	logger.DebugKV(ctx, "Verified source checksum", "path", path, "checksum", src.Checksum)

	return path, nil
}

func (f *Fetcher) retrieve(ctx context.Context, rawURL, path string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse source url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.download(ctx, u.String(), path)
	case "file":
		return copyLocal(u.Path, path)
	case "":
		return copyLocal(rawURL, path)
	default:
		return fmt.Errorf("%w: %s", errUnsupportedScheme, u.Scheme)
	}
}

func (f *Fetcher) download(ctx context.Context, rawURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", rawURL, response.Status, errBadHTTPStatus)
	}

	var body io.Reader = response.Body

	if f.progress != nil {
		bar := newProgressBar(f.progress, response.ContentLength)

		defer func() {
			_ = bar.Finish()
		}()

		body = io.TeeReader(response.Body, bar)
	}

	return writeFile(path, body)
}

// newProgressBar renders byte progress to w; a negative size shows a spinner.
func newProgressBar(w io.Writer, size int64) *progressbar.ProgressBar {
	return progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(descDownloading),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
}

func copyLocal(src, path string) error {
	file, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	return writeFile(path, file)
}

func writeFile(path string, r io.Reader) error {
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err = io.Copy(out, r); err != nil {
		_ = out.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	return nil
}
