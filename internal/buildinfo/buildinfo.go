// Package buildinfo exposes the version and commit of the confload binary,
// set at link-time.
package buildinfo

// Version is set at link-time with -ldflags "-X .../buildinfo.Version=...".
var Version = "v0.1.0"

// Commit is set at link-time with -ldflags.
// Default is "unknown" so tests and "go run ." still work.
var Commit = "unknown"
