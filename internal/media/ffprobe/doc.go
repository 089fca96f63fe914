// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size)
//
// Inspect executes the binary and returns a parsed Result; AudioDuration
// layers on the fallback narration timing needs (container duration first,
// then the first audio stream that reports one).
package ffprobe
