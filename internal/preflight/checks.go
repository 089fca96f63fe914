package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"

	"reelforge/internal/config"
	"reelforge/internal/deps"
	"reelforge/internal/services/gemini"
	"reelforge/internal/services/llm"
)

// lowDiskBytes is the free-space floor for the data directory. Renders,
// narration, and clip downloads routinely need a few GiB of scratch, so
// anything under this is flagged before the daemon accepts work.
const lowDiskBytes = 2 << 30

// diskUsage is swapped in tests to exercise the threshold logic without a
// real filesystem.
var diskUsage = disk.Usage

// CheckLLM verifies that the text-generation API is reachable and the key
// is valid. It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, cfg config.LLMConfig) Result {
	const name = "LLM API"

	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var err error
	if cfg.Provider == config.ProviderGemini {
		var client *gemini.Client
		client, err = gemini.NewClient(checkCtx, gemini.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		}, gemini.WithMaxRetries(0))
		if err == nil {
			err = client.HealthCheck(checkCtx)
		}
	} else {
		client := llm.NewClient(llm.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
		}, llm.WithRetryMaxAttempts(1))
		err = client.HealthCheck(checkCtx)
	}
	if err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out
// to. Both the daemon and the CLI status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for clip normalization and video assembly",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media duration probing",
		},
		{
			Name:        "uvx",
			Command:     cfg.UvxBinary(),
			Description: "Required for edge-tts speech synthesis",
		},
	}
	return deps.CheckBinaries(requirements)
}

// CheckStockMedia verifies an API key is present for the configured
// footage source. Key validity is not probed here; a bad key surfaces as
// a material-stage failure with a clear provider error.
func CheckStockMedia(cfg *config.Config) Result {
	const name = "Stock media"

	source := strings.TrimSpace(cfg.Pipeline.MaterialSource)
	if source == "" {
		source = config.SourcePexels
	}
	pexels := strings.TrimSpace(cfg.StockMedia.PexelsAPIKey) != ""
	pixabay := strings.TrimSpace(cfg.StockMedia.PixabayAPIKey) != ""

	configured := pexels
	if source == config.SourcePixabay {
		configured = pixabay
	}
	if !configured {
		return Result{Name: name, Detail: fmt.Sprintf("no API key for source %q", source)}
	}
	if pexels && pixabay {
		return Result{Name: name, Passed: true, Detail: "pexels and pixabay keys present"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s key present", source)}
}

// CheckDiskSpace reports free space on the volume backing the data
// directory and flags it when it drops below the scratch-space floor.
func CheckDiskSpace(path string) Result {
	const name = "Disk space"

	usage, err := diskUsage(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s free in %s", formatBytes(usage.Free), path)
	if usage.Free < lowDiskBytes {
		return Result{Name: name, Detail: detail + " (low)"}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func formatBytes(n uint64) string {
	const (
		gib = 1 << 30
		mib = 1 << 20
	)
	if n >= gib {
		return fmt.Sprintf("%.1f GiB", float64(n)/float64(gib))
	}
	return fmt.Sprintf("%.0f MiB", float64(n)/float64(mib))
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
