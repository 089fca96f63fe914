// Package llm provides a chat completion client for any provider speaking
// the OpenAI-compatible /chat/completions schema.
//
// This package is used by:
//   - Script stage: free-form script generation (Complete)
//   - Terms stage: JSON-array search term generation (CompleteJSON)
//   - Preflight: key/model verification (HealthCheck)
//
// # Configuration
//
// Requires api_key and model; base_url defaults to the OpenAI endpoint and
// may point at any compatible provider.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, network timeouts, and
// empty completions with exponential backoff (base 1s, max 10s, up to 5
// attempts by default), honoring Retry-After. Context cancellation aborts
// retries immediately. IsRetryable classifies a final failure for job-level
// retry decisions.
//
// # Response Tolerance
//
// Providers differ in where completion text lands (message, delta, legacy
// text, tool call arguments); extraction checks each in turn. DecodeLLMJSON
// strips code fences and surrounding prose before parsing JSON payloads.
package llm
