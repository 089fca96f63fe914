package main

import (
	"context"
	"testing"
)

func TestCacheClearExpired(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if err := env.cache.Set(ctx, "script", "a cached response", map[string]any{"topic": "Tidal power"}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	out, _, err := runCLI(t, []string{"cache", "clear-expired"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear-expired: %v", err)
	}
	requireContains(t, out, "Evicted 0 expired cache entries")

	count, err := env.cache.Count(ctx)
	if err != nil {
		t.Fatalf("cache count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected fresh entry kept, got %d entries", count)
	}
}
