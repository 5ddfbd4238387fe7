// Package inspect implements the read-only commands of the CLI: checksum
// computation and verification, manifest resolution, archive listing and the
// installed-package placeholders info and uninstall.
package inspect
