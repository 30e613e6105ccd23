// Package version exposes build metadata of the sos-button binaries.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Full is printed by the `version` subcommand of every binary and
// UserAgent is sent with every request the trigger and the watcher make.
package version
