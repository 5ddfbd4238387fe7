package fetcher

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tailwags/blossom/internal/checksum"
	"github.com/tailwags/blossom/internal/manifest"
)

var payload = []byte("foo-1.0 source tarball")

func sha256Of(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/foo-1.0.tar.gz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

// TestFetchHTTP downloads a source, shows progress and verifies it.
func TestFetchHTTP(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	dir := filepath.Join(t.TempDir(), "sources")

	var progress bytes.Buffer

	f := New(WithHTTPClient(server.Client()), WithProgress(&progress))

	path, err := f.Fetch(context.Background(), manifest.Source{
		URL:      server.URL + "/foo-1.0.tar.gz",
		Checksum: sha256Of(payload),
	}, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "foo-1.0.tar.gz"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, payload, data)
	require.Contains(t, progress.String(), descDownloading)
}

// TestFetchChecksumMismatch removes the download when the digest differs.
func TestFetchChecksumMismatch(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	dir := t.TempDir()

	_, err := New(WithHTTPClient(server.Client())).Fetch(context.Background(), manifest.Source{
		URL:      server.URL + "/foo-1.0.tar.gz",
		Checksum: sha256Of([]byte("something else")),
	}, dir)
	require.ErrorIs(t, err, checksum.ErrMismatch)

	_, err = os.Stat(filepath.Join(dir, "foo-1.0.tar.gz"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestFetchBadStatus reports non-200 responses.
func TestFetchBadStatus(t *testing.T) {
	t.Parallel()

	server := newServer(t)

	_, err := New(WithHTTPClient(server.Client())).Fetch(context.Background(), manifest.Source{
		URL:      server.URL + "/missing.tar.gz",
		Checksum: sha256Of(payload),
	}, t.TempDir())
	require.ErrorIs(t, err, errBadHTTPStatus)
}

// TestFetchUnsupportedAlgorithm surfaces checksum errors from verification.
func TestFetchUnsupportedAlgorithm(t *testing.T) {
	t.Parallel()

	server := newServer(t)

	_, err := New(WithHTTPClient(server.Client())).Fetch(context.Background(), manifest.Source{
		URL:      server.URL + "/foo-1.0.tar.gz",
		Checksum: "md5:deadbeef",
	}, t.TempDir())
	require.ErrorIs(t, err, checksum.ErrUnsupportedAlgorithm)
}

// TestFetchLocal copies file URLs and plain paths.
func TestFetchLocal(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "local.tar")
	require.NoError(t, os.WriteFile(src, payload, 0o600))

	blake, err := checksum.File(src, checksum.BLAKE3)
	require.NoError(t, err)

	for _, url := range []string{"file://" + filepath.ToSlash(src), src} {
		path, err := New().Fetch(context.Background(), manifest.Source{URL: url, Checksum: blake}, t.TempDir())
		require.NoError(t, err, url)
		require.Equal(t, "local.tar", filepath.Base(path))
	}
}

// TestFetchUnsupportedScheme rejects schemes other than http, https and file.
func TestFetchUnsupportedScheme(t *testing.T) {
	t.Parallel()

	_, err := New().Fetch(context.Background(), manifest.Source{
		URL:      "ftp://example.com/foo.tar.gz",
		Checksum: sha256Of(payload),
	}, t.TempDir())
	require.ErrorIs(t, err, errUnsupportedScheme)
}
