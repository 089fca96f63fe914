// Package daemon coordinates the long-running Reelforge process.
//
// It wires configuration, queue storage, the response cache, and the worker
// pool into a single lifecycle with flock-based locking to prevent multiple
// instances. Startup runs the preflight report, recovers jobs abandoned in
// processing by a previous run, and launches the pool; the operator methods
// in operations.go are served to the CLI over IPC.
//
// Keep orchestration logic here: pipeline stages live in their own packages
// while the daemon focuses on startup, shutdown, and queue administration.
package daemon
