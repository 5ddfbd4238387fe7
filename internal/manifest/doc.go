// Package manifest defines the build manifest model and its TOML parser.
//
// A manifest describes one package: its identity ([info]), the names of the
// packages it depends on, the sources to download, the ordered build steps
// and a map of logical directories. Parsing validates the SPDX license
// expression and resolves %{name} placeholders in source URLs, step commands
// and move paths, so a parsed Manifest never contains an unresolved placeholder.
//
// Example manifest:
//
//	[info]
//	name = "foo"
//	version = "1.0"
//	description = "An example package"
//	license = "MIT OR Apache-2.0"
//
//	[[sources]]
//	url = "https://example.com/foo-%{version}.tar.gz"
//	checksum = "sha256:..."
//
//	[[steps]]
//	name = "build"
//	runner = "shell"
//	command = "make DESTDIR=%{pkgdir} install"
//
//	[[steps]]
//	name = "docs"
//	path = "README.md"
package manifest
