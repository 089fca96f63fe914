package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reelforge/internal/queue"
)

func writeTopicsFile(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "topics.txt")
	content := ""
	for _, line := range lines {
		content += line + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write topics file: %v", err)
	}
	return path
}

func TestBatchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	path := writeTopicsFile(t, t.TempDir(),
		"# morning batch",
		"Nature_01_Deep_Sea_Vents",
		"History_01_The_Silk_Road",
		"",
		"Bare topic line",
	)

	out, _, err := runCLI(t, []string{"batch", path}, env.configPath)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	requireContains(t, out, "Processed 3 topics from "+path+" (enqueue mode)")
	requireContains(t, out, "enqueued")
	requireContains(t, out, "Nature")
	requireContains(t, out, "History")
	requireContains(t, out, "General")

	job, err := env.store.FindByTopic(ctx, "Deep Sea Vents")
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if job == nil {
		t.Fatal("expected Deep Sea Vents enqueued")
	}
	if job.Category != "Nature" {
		t.Fatalf("expected Nature category, got %q", job.Category)
	}

	jobs, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}

	// A second run must not duplicate topics.
	out, _, err = runCLI(t, []string{"batch", path}, env.configPath)
	if err != nil {
		t.Fatalf("batch rerun: %v", err)
	}
	requireContains(t, out, "skipped")

	jobs, err = env.store.List(ctx)
	if err != nil {
		t.Fatalf("list jobs after rerun: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected rerun to skip, got %d jobs", len(jobs))
	}
}

func TestBatchResume(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	path := writeTopicsFile(t, t.TempDir(),
		"Nature_01_Coral_Reefs",
		"Nature_02_Glacier_Caves",
	)

	if _, _, err := runCLI(t, []string{"batch", path}, env.configPath); err != nil {
		t.Fatalf("initial batch: %v", err)
	}

	failed, err := env.store.FindByTopic(ctx, "Coral Reefs")
	if err != nil || failed == nil {
		t.Fatalf("find coral reefs: %v %v", failed, err)
	}
	markFailed(t, env.store, failed.ID, "materials: no clips matched")

	out, _, err := runCLI(t, []string{"batch", path, "--resume"}, env.configPath)
	if err != nil {
		t.Fatalf("batch --resume: %v", err)
	}
	requireContains(t, out, "(resume mode)")
	requireContains(t, out, "reset")

	updated, err := env.store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("lookup job: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending after resume, got %s", updated.Status)
	}
}

func TestBatchReportFile(t *testing.T) {
	env := setupCLITestEnv(t)

	dir := t.TempDir()
	path := writeTopicsFile(t, dir, "Tech_01_Vacuum_Tubes")
	reportPath := filepath.Join(dir, "report.md")

	out, _, err := runCLI(t, []string{"batch", path, "--report", reportPath}, env.configPath)
	if err != nil {
		t.Fatalf("batch --report: %v", err)
	}
	requireContains(t, out, "Report written to "+reportPath)

	content, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	requireContains(t, string(content), "# Batch Report: topics.txt")
	requireContains(t, string(content), "| Enqueued | 1 |")
}

func TestBatchMissingFile(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"batch", filepath.Join(t.TempDir(), "absent.txt")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing topics file")
	}
}
