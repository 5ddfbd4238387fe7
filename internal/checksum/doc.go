// Package checksum verifies files against "<algorithm>:<hex digest>" strings.
//
// Supported algorithms are blake3 and sha256. Digests are compared as
// lowercase hexadecimal, exactly as written.
package checksum
