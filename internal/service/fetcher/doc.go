// Package fetcher downloads manifest sources and verifies their checksums.
//
// http and https URLs are downloaded; file URLs and plain paths are copied.
// A source is only kept if its checksum matches. Nothing is retried.
package fetcher
