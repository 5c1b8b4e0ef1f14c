// Package daemon coordinates the long-running examsight process.
//
// It wires configuration, the stream supervisor, the latest-state cache,
// the broadcast hub, the checkpoint journal, and metrics into a single
// lifecycle with flock-based locking to prevent multiple instances, and
// serves the HTTP control API.
package daemon
