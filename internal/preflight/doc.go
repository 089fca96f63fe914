// Package preflight provides readiness checks for the external services,
// binaries, and filesystem paths that Reelforge depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll once at startup and logs each result, so an
//     operator tailing the log sees a missing ffmpeg or a bad API key
//     before the first job claims.
//   - The CLI "reelforge status" command renders the same results plus the
//     config-only summaries (CheckNotificationsFromConfig,
//     CheckCacheFromConfig) that need no network round trip.
//
// Failed checks are advisory. The daemon starts anyway and affected jobs
// fail with the specific stage error, which keeps a flaky LLM endpoint
// from blocking unrelated local-only work.
package preflight
