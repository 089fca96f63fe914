package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reelforge/internal/config"
	"reelforge/internal/daemon"
	"reelforge/internal/ipc"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/queue"
	"reelforge/internal/respcache"
	"reelforge/internal/testsupport"
	"reelforge/internal/worker"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, *pipeline.Task) error { return nil }

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	cache      *respcache.Cache
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	logPath    string
	cancel     context.CancelFunc
}

// setupCLITestEnv stands up a store, daemon, and IPC server the way
// daemonrun does, minus daemon.Start so no preflight network calls run.
// The server listens on the socket path the CLI derives from the config
// file written under the test HOME.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	logPath := filepath.Join(cfg.Paths.LogDir, daemon.LogPointerName)
	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(logPath, nil, 0o644); err != nil {
			t.Fatalf("create log file: %v", err)
		}
	}

	configPath := filepath.Join(homeDir, ".config", "reelforge", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	cache := testsupport.MustOpenCache(t, cfg)

	logger := logging.NewNop()
	pool := worker.New(store, noopRunner{}, cfg, logger, nil)

	d, err := daemon.New(cfg, store, cache, pool, logger, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := ipc.SocketPath(cfg)
	srv, err := ipc.NewServer(ctx, socketPath, d, logger, nil)
	if err != nil {
		cancel()
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		cache:      cache,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		logPath:    logPath,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

// setupOfflineConfig writes a config file with no daemon listening so
// commands exercise their direct-database fallbacks.
func setupOfflineConfig(t *testing.T) (*config.Config, string) {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "reelforge", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)
	return cfg, configPath
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func markFailed(t *testing.T, store *queue.Store, id, message string) {
	t.Helper()
	if err := store.UpdateStatus(context.Background(), id, queue.StatusFailed, queue.StatusUpdate{
		ErrorMessage: &message,
	}); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
}

func markProcessing(t *testing.T, store *queue.Store, id string) {
	t.Helper()
	if err := store.UpdateStatus(context.Background(), id, queue.StatusProcessing, queue.StatusUpdate{}); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
}

func markSucceeded(t *testing.T, store *queue.Store, id, outputPath string) {
	t.Helper()
	if err := store.UpdateStatus(context.Background(), id, queue.StatusSuccess, queue.StatusUpdate{
		OutputPath: &outputPath,
	}); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}
