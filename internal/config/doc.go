// Package config defines the build settings shared by blossom commands and
// provides helpers to load, validate and save them.
//
// Settings are read from a YAML file (blossom.yaml by default) with viper,
// and every key can be overridden by a BLOSSOM_* environment variable,
// e.g. BLOSSOM_COMPRESSION=zstd or BLOSSOM_SHELL_INTERPRETER=embedded.
package config
