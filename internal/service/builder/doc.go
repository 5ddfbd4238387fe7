// Package builder drives a complete package build from a manifest.
//
// A build acquires the working directory lock, loads the manifest, prepares
// the staging directory, fetches and verifies sources, runs the steps in
// declaration order and packs the staging directory into an archive.
// Steps are never reordered, parallelized or cached.
package builder
