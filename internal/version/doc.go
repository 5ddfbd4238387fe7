// Package version holds the blossom release metadata injected with -ldflags
// "-X github.com/tailwags/blossom/internal/version.Version=...".
package version
