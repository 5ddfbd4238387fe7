package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"
)

// Algorithm is a digest algorithm tag.
type Algorithm string

const (
	// BLAKE3 is the default tree hash.
	BLAKE3 Algorithm = "blake3"
	// SHA256 is SHA-2 with a 256-bit digest.
	SHA256 Algorithm = "sha256"
)

const separator = ":"

var (
	// ErrFormat is returned when a checksum string has no algorithm separator.
	ErrFormat = errors.New("invalid checksum format")

	// ErrMismatch is returned by callers that require a file to match its checksum.
	ErrMismatch = errors.New("checksum mismatch")

	// ErrUnsupportedAlgorithm is matched by *UnsupportedAlgorithmError.
	ErrUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")
)

// UnsupportedAlgorithmError names an algorithm tag this package cannot compute.
type UnsupportedAlgorithmError struct {
	Algorithm string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnsupportedAlgorithm, e.Algorithm)
}

// Is reports whether target is ErrUnsupportedAlgorithm.
func (e *UnsupportedAlgorithmError) Is(target error) bool {
	return target == ErrUnsupportedAlgorithm
}

// Algorithms lists the supported algorithm tags.
func Algorithms() []Algorithm {
	return []Algorithm{BLAKE3, SHA256}
}

// Parse splits checksum on its first colon. The algorithm is not validated.
func Parse(checksum string) (Algorithm, string, error) {
	algorithm, digest, found := strings.Cut(checksum, separator)
	if !found {
		return "", "", fmt.Errorf("%w: %q", ErrFormat, checksum)
	}

	return Algorithm(algorithm), digest, nil
}

// Sum returns the lowercase hex digest of data.
func Sum(algorithm Algorithm, data []byte) (string, error) {
	switch algorithm {
	case BLAKE3:
		sum := blake3.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", &UnsupportedAlgorithmError{Algorithm: string(algorithm)}
	}
}

// Format joins an algorithm and digest into a checksum string.
func Format(algorithm Algorithm, digest string) string {
	return string(algorithm) + separator + digest
}

// File reads the file at path and returns its checksum string.
func File(path string, algorithm Algorithm) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	digest, err := Sum(algorithm, contents)
	if err != nil {
		return "", err
	}

	return Format(algorithm, digest), nil
}

// Verify reports whether the file at path matches checksum.
// The comparison is case-sensitive; expected digests must be lowercase hex.
func Verify(path, checksum string) (bool, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false, fmt.Errorf("read file: %w", err)
	}

	algorithm, expected, err := Parse(checksum)
	if err != nil {
		return false, err
	}

	computed, err := Sum(algorithm, contents)
	if err != nil {
		return false, err
	}

	return computed == expected, nil
}
