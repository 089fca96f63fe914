package main

import (
	"testing"

	"github.com/google/uuid"

	"reelforge/internal/testsupport"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.InsertJob(t, env.store, uuid.NewString(), "Silk weaving", "")
	beta := testsupport.InsertJob(t, env.store, uuid.NewString(), "Canal locks", "")
	markFailed(t, env.store, beta.ID, "tts: synthesis timeout")

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	requireContains(t, out, "== System Status ==")
	requireContains(t, out, "Daemon:")
	requireContains(t, out, "Not running")
	requireContains(t, out, "Data dir:")
	requireContains(t, out, "Output dir:")
	requireContains(t, out, "Log dir:")
	requireContains(t, out, "Stock media:")
	requireContains(t, out, "Notifications:")
	requireContains(t, out, "[INFO] Disabled")
	requireContains(t, out, "Response cache:")

	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "Ready (command: ffmpeg)")
	requireContains(t, out, "FFprobe:")
	requireContains(t, out, "uvx:")

	requireContains(t, out, "== Queue Status ==")
	requireContains(t, out, "pending")
	requireContains(t, out, "failed")
	requireContains(t, out, "total")
}

func TestStatusCommandEmptyQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Queue Status ==")
	requireContains(t, out, "Queue is empty")
}

func TestStatusCommandOffline(t *testing.T) {
	_, configPath := setupOfflineConfig(t)

	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status offline: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "Queue is empty")
}

func TestStopCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Stopping daemon...")
	requireContains(t, out, "Daemon stopped")
}

func TestStopWithoutDaemon(t *testing.T) {
	_, configPath := setupOfflineConfig(t)

	out, _, err := runCLI(t, []string{"stop"}, configPath)
	if err != nil {
		t.Fatalf("stop offline: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}
