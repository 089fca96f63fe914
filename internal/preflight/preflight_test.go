package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"

	"reelforge/internal/config"
	"reelforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), config.LLMConfig{Provider: config.ProviderGemini})
	if result.Passed {
		t.Fatal("expected failure without an API key")
	}
	if result.Detail != "API key missing" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckSystemDeps_ListsPipelineBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 binary checks, got %d", len(statuses))
	}
	want := []string{"FFmpeg", "FFprobe", "uvx"}
	for i, status := range statuses {
		if status.Name != want[i] {
			t.Fatalf("expected check %d to be %s, got %s", i, want[i], status.Name)
		}
		if !status.Available {
			t.Errorf("%s unavailable: %s", status.Name, status.Detail)
		}
	}
}

func TestCheckSystemDeps_MissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg", "ffprobe"))
	cfg.Tools.Uvx = "definitely-not-on-path"

	statuses := CheckSystemDeps(cfg)
	if statuses[2].Available {
		t.Fatal("expected uvx to be unavailable")
	}
	if statuses[2].Detail == "" {
		t.Fatal("expected detail for missing binary")
	}
}

func TestCheckStockMedia_KeyPresent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.StockMedia.PixabayAPIKey = ""

	result := CheckStockMedia(cfg)
	if !result.Passed {
		t.Fatalf("expected pass with pexels key, got: %s", result.Detail)
	}
	if result.Detail != "pexels key present" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckStockMedia_MissingKeyForSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.MaterialSource = config.SourcePixabay
	cfg.StockMedia.PixabayAPIKey = ""

	result := CheckStockMedia(cfg)
	if result.Passed {
		t.Fatal("expected failure when the selected source has no key")
	}
	if !strings.Contains(result.Detail, "pixabay") {
		t.Fatalf("expected detail to name the source, got: %s", result.Detail)
	}
}

func TestCheckStockMedia_BothKeys(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	result := CheckStockMedia(cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result.Detail != "pexels and pixabay keys present" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDiskSpace_Healthy(t *testing.T) {
	restore := diskUsage
	diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 10 << 30}, nil
	}
	defer func() { diskUsage = restore }()

	result := CheckDiskSpace("/data")
	if !result.Passed {
		t.Fatalf("expected pass with 10 GiB free, got: %s", result.Detail)
	}
	if result.Detail != "10.0 GiB free in /data" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDiskSpace_Low(t *testing.T) {
	restore := diskUsage
	diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 512 << 20}, nil
	}
	defer func() { diskUsage = restore }()

	result := CheckDiskSpace("/data")
	if result.Passed {
		t.Fatal("expected failure below the free-space floor")
	}
	if result.Detail != "512 MiB free in /data (low)" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDiskSpace_Error(t *testing.T) {
	restore := diskUsage
	diskUsage = func(string) (*disk.UsageStat, error) {
		return nil, errors.New("statfs failed")
	}
	defer func() { diskUsage = restore }()

	result := CheckDiskSpace("/data")
	if result.Passed {
		t.Fatal("expected failure when usage cannot be read")
	}
	if !strings.Contains(result.Detail, "statfs failed") {
		t.Fatalf("expected detail to carry the error, got: %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ComposesAllChecks(t *testing.T) {
	restore := diskUsage
	diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 10 << 30}, nil
	}
	defer func() { diskUsage = restore }()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	// Without a key the LLM check fails fast instead of dialing out.
	cfg.Gemini.APIKey = ""
	cfg.LLM.APIKey = ""

	results := RunAll(context.Background(), cfg)
	want := []string{
		"Data directory",
		"Output directory",
		"FFmpeg",
		"FFprobe",
		"uvx",
		"LLM API",
		"Stock media",
		"Disk space",
	}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r.Name != want[i] {
			t.Fatalf("expected result %d to be %q, got %q", i, want[i], r.Name)
		}
		if r.Name == "LLM API" {
			if r.Passed {
				t.Error("expected LLM check to fail without a key")
			}
			continue
		}
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestCheckNotificationsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""

	result := CheckNotificationsFromConfig(cfg)
	if !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("expected disabled summary, got passed=%v detail=%s", result.Passed, result.Detail)
	}

	cfg.Notifications.NtfyTopic = "reelforge-alerts"
	cfg.Notifications.Jobs = true
	cfg.Notifications.Batch = false
	cfg.Notifications.Errors = true

	result = CheckNotificationsFromConfig(cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result.Detail != `topic "reelforge-alerts" (jobs, errors)` {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckCacheFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cache.Enabled = false

	result := CheckCacheFromConfig(cfg)
	if !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("expected disabled summary, got passed=%v detail=%s", result.Passed, result.Detail)
	}

	cfg.Cache.Enabled = true
	cfg.Cache.TTLDays = 14
	result = CheckCacheFromConfig(cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.HasPrefix(result.Detail, "TTL 14 days") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}
