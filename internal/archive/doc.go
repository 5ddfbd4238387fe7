// Package archive packs a staging directory into a compressed tarball named
// after the package it holds ("<name>-<version>.peach").
//
// Archives are compressed with gzip at the default level unless zstd is
// requested, in which case the best-compression encoder level is used.
// List reads an archive back and detects its compression from magic bytes.
package archive
