package preflight

import (
	"context"

	"reelforge/internal/config"
	"reelforge/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every readiness check for the given config: directory
// access, external binaries, LLM reachability, stock-media credentials,
// and free disk space in the data directory.
//
// The daemon runs this once at startup and logs each result; the status
// command renders the same list for operators. Failures are advisory --
// the daemon still starts, and doomed jobs fail with the specific error.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, Result{
			Name:   status.Name,
			Passed: status.Available,
			Detail: binaryDetail(status),
		})
	}
	results = append(results,
		CheckLLM(ctx, cfg.GetLLM()),
		CheckStockMedia(cfg),
		CheckDiskSpace(cfg.Paths.DataDir),
	)
	return results
}

func binaryDetail(status deps.Status) string {
	if status.Available {
		return status.Command
	}
	return status.Detail
}
