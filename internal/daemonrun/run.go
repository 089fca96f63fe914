// Package daemonrun hosts the reelforged process runtime: logging setup, pid
// file management, pipeline composition, and the IPC server wired to a
// daemon instance. Both the standalone daemon binary and the CLI's foreground
// start command call into Run.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"reelforge/internal/assembly"
	"reelforge/internal/config"
	"reelforge/internal/daemon"
	"reelforge/internal/ipc"
	"reelforge/internal/logging"
	"reelforge/internal/notifications"
	"reelforge/internal/pipeline"
	"reelforge/internal/queue"
	"reelforge/internal/respcache"
	"reelforge/internal/services/scriptgen"
	"reelforge/internal/services/stockmedia"
	"reelforge/internal/services/tts"
	"reelforge/internal/subtitles"
	"reelforge/internal/worker"
)

// PIDFileName is the daemon pid file written into the log directory.
const PIDFileName = "reelforged.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the reelforge daemon runtime loop. It blocks until a SIGINT or
// SIGTERM arrives, or until a stop request comes in over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("reelforge-%s.log", runID))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", daemon.LogPointerName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "reelforge-*.log", Exclude: []string{logPath}},
	)
	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	var cache *respcache.Cache
	if cfg.Cache.Enabled {
		cache, err = respcache.Open(cfg, respcache.WithLogger(logger))
		if err != nil {
			// Cache misses are the worst case without it, so the daemon runs on.
			logger.Warn("response cache unavailable, continuing without it",
				logging.Error(err),
				logging.String(logging.FieldEventType, "cache_open_failed"),
				logging.String(logging.FieldErrorHint, "check data_dir permissions and disk space"),
				logging.String(logging.FieldImpact, "every generation hits the upstream providers"),
			)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	collab, err := BuildCollaborators(signalCtx, cfg, cache, logger)
	if err != nil {
		logger.Error("compose pipeline services", logging.Error(err))
		return err
	}
	orchestrator := pipeline.NewOrchestrator(cfg, collab, logger)

	notifier := notifications.NewService(cfg)
	pool := worker.New(store, orchestrator, cfg, logger, notifier)

	d, err := daemon.New(cfg, store, cache, pool, logger, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	stopRequested := make(chan struct{})
	var stopOnce sync.Once
	shutdown := func() { stopOnce.Do(func() { close(stopRequested) }) }

	ipcServer, err := ipc.NewServer(signalCtx, ipc.SocketPath(cfg), d, logger, shutdown)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and queue database access"),
			logging.String(logging.FieldImpact, "daemon may not process queue jobs"),
		)
	}

	select {
	case <-signalCtx.Done():
		logger.Info("reelforge daemon shutting down",
			logging.String(logging.FieldEventType, "daemon_shutdown"),
			logging.String("reason", "signal"),
		)
	case <-stopRequested:
		// Give the stop RPC response time to reach the client before the
		// socket is torn down.
		time.Sleep(200 * time.Millisecond)
		logger.Info("reelforge daemon shutting down",
			logging.String(logging.FieldEventType, "daemon_shutdown"),
			logging.String("reason", "stop_request"),
		)
	}
	return nil
}

// BuildCollaborators composes the pipeline stage services from configuration.
// The cache may be nil; script generation then always hits the provider. The
// CLI reuses this for one-shot runs so both paths drive identical services.
func BuildCollaborators(ctx context.Context, cfg *config.Config, cache *respcache.Cache, logger *slog.Logger) (pipeline.Collaborators, error) {
	scripts, err := scriptgen.NewFromConfig(ctx, cfg, cache, logger)
	if err != nil {
		return pipeline.Collaborators{}, fmt.Errorf("script generator: %w", err)
	}
	return pipeline.Collaborators{
		Scripts:   scripts,
		Speech:    tts.NewService(cfg, logger),
		Materials: stockmedia.NewService(cfg, logger),
		Subtitles: subtitles.NewService(logger),
		Assembler: assembly.NewService(cfg, logger),
	}, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, daemon.LogPointerName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	llmCfg := cfg.GetLLM()
	ffmpeg := cfg.FFmpegBinary()
	ffprobe := cfg.FFprobeBinary()
	uvx := cfg.UvxBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("llm_provider", llmCfg.Provider),
		logging.Bool("llm_key_present", strings.TrimSpace(llmCfg.APIKey) != ""),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("uvx_available", binaryAvailable(uvx)),
		logging.Bool("pexels_key_present", strings.TrimSpace(cfg.StockMedia.PexelsAPIKey) != ""),
		logging.Bool("pixabay_key_present", strings.TrimSpace(cfg.StockMedia.PixabayAPIKey) != ""),
		logging.Bool("cache_enabled", cfg.Cache.Enabled),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
