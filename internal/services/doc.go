// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue job IDs, stage names, worker slots, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (transient vs permanent) uniform across collaborators.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays consistent across the
// pipeline.
package services
