package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the stream compressor wrapped around the tar writer.
type Compression string

const (
	// Gzip is DEFLATE in a gzip container at the default level.
	Gzip Compression = "gzip"
	// Zstd is Zstandard at its best-compression level.
	Zstd Compression = "zstd"

	// DefaultCompression is used when no compression is configured.
	DefaultCompression = Gzip
)

var (
	errUnknownCompression = errors.New("unknown compression")

	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// ParseCompression maps a configuration value to a Compression.
// An empty string selects DefaultCompression.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "":
		return DefaultCompression, nil
	case Gzip, Zstd:
		return Compression(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected %s or %s)", errUnknownCompression, s, Gzip, Zstd)
	}
}

func (c Compression) String() string {
	return string(c)
}

// newCompressor wraps w with the selected encoder.
func newCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownCompression, c)
	}
}

// newDecompressor sniffs the stream header and returns a matching decoder.
func newDecompressor(r io.Reader) (io.ReadCloser, Compression, error) {
	buffered := bufio.NewReader(r)

	header, err := buffered.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("read archive header: %w", err)
	}

	switch {
	case bytes.HasPrefix(header, gzipMagic):
		decoder, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, "", fmt.Errorf("open gzip stream: %w", err)
		}

		return decoder, Gzip, nil
	case bytes.HasPrefix(header, zstdMagic):
		decoder, err := zstd.NewReader(buffered)
		if err != nil {
			return nil, "", fmt.Errorf("open zstd stream: %w", err)
		}

		return decoder.IOReadCloser(), Zstd, nil
	default:
		return nil, "", fmt.Errorf("%w: unrecognized archive header", errUnknownCompression)
	}
}
