// Package notifications delivers lifecycle events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Enumerated event types cover job completion, failures, batch summaries, and
// daemon lifecycle so the worker pool and daemon can emit consistent messages
// without duplicating HTTP glue. Per-class config toggles mute job, batch, or
// error events individually.
//
// Extend this package if you need alternative transports; callers depend only
// on the Service interface.
package notifications
