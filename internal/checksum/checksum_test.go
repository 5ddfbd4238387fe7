package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func writeFile(t *testing.T, contents []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "source.tar.gz")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	return path
}

// TestVerifySHA256 checks a matching digest and a one-byte mutation.
func TestVerifySHA256(t *testing.T) {
	t.Parallel()

	contents := []byte("blossom source archive")
	path := writeFile(t, contents)

	sum := sha256.Sum256(contents)
	checksum := "sha256:" + hex.EncodeToString(sum[:])

	ok, err := Verify(path, checksum)
	require.NoError(t, err)
	require.True(t, ok)

	contents[0] ^= 0xff
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	ok, err = Verify(path, checksum)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestVerifyBLAKE3 checks a matching blake3 digest.
func TestVerifyBLAKE3(t *testing.T) {
	t.Parallel()

	contents := []byte("another source")
	path := writeFile(t, contents)

	sum := blake3.Sum256(contents)

	ok, err := Verify(path, "blake3:"+hex.EncodeToString(sum[:]))
	require.NoError(t, err)
	require.True(t, ok)
}

// TestVerifyIsCaseSensitive documents that uppercase digests never match.
func TestVerifyIsCaseSensitive(t *testing.T) {
	t.Parallel()

	path := writeFile(t, []byte("x"))

	checksum, err := File(path, SHA256)
	require.NoError(t, err)

	algorithm, digest, err := Parse(checksum)
	require.NoError(t, err)
	require.Equal(t, SHA256, algorithm)

	ok, err := Verify(path, Format(algorithm, strings.ToUpper(digest)))
	require.NoError(t, err)
	require.False(t, ok)
}

// TestVerifyErrors covers unsupported algorithms, malformed strings and unreadable files.
func TestVerifyErrors(t *testing.T) {
	t.Parallel()

	path := writeFile(t, []byte("x"))

	_, err := Verify(path, "md5:deadbeef")
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	var unsupported *UnsupportedAlgorithmError
	require.ErrorAs(t, err, &unsupported)
	require.Equal(t, "md5", unsupported.Algorithm)

	_, err = Verify(path, "nocolon")
	require.ErrorIs(t, err, ErrFormat)

	_, err = Verify(filepath.Join(t.TempDir(), "missing"), "sha256:00")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestParseSplitsOnFirstColon ensures extra colons stay in the digest.
func TestParseSplitsOnFirstColon(t *testing.T) {
	t.Parallel()

	algorithm, digest, err := Parse("sha256:ab:cd")
	require.NoError(t, err)
	require.Equal(t, SHA256, algorithm)
	require.Equal(t, "ab:cd", digest)
}

// TestFileMatchesVerify ensures File output is accepted by Verify for every algorithm.
func TestFileMatchesVerify(t *testing.T) {
	t.Parallel()

	path := writeFile(t, []byte("round trip"))

	for _, algorithm := range Algorithms() {
		checksum, err := File(path, algorithm)
		require.NoError(t, err)

		ok, err := Verify(path, checksum)
		require.NoError(t, err)
		require.True(t, ok, algorithm)
	}
}
