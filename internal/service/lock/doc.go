// Package lock guards a working directory against concurrent builds with a
// marker file holding the builder's process ID. A marker left behind by a
// process that no longer exists is treated as stale and replaced.
package lock
