package daemon_test

import (
	"context"
	"strings"
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/daemon"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/queue"
	"reelforge/internal/testsupport"
	"reelforge/internal/worker"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, *pipeline.Task) error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(2), testsupport.WithStubbedBinaries())
	// Without a key the LLM preflight check fails fast instead of dialing out.
	cfg.Gemini.APIKey = ""
	cfg.LLM.APIKey = ""
	return cfg
}

func newDaemon(t *testing.T, cfg *config.Config, store *queue.Store) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	pool := worker.New(store, noopRunner{}, cfg, logger, nil)
	d, err := daemon.New(cfg, store, nil, pool, logger, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected daemon to report running")
	}

	status, err := d.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running {
		t.Fatal("expected status to report running")
	}
	if status.Workers != 2 {
		t.Fatalf("expected 2 workers, got %d", status.Workers)
	}
	if status.PID <= 0 {
		t.Fatalf("expected positive pid, got %d", status.PID)
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected preflight checks in status")
	}

	// Second start should fail.
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon to be stopped")
	}
	status, err = d.Status(ctx)
	if err != nil {
		t.Fatalf("Status after stop: %v", err)
	}
	if status.Running || status.Workers != 0 {
		t.Fatalf("expected stopped status, got running=%v workers=%d", status.Running, status.Workers)
	}
}

func TestDaemonSecondInstanceRefused(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, store)
	t.Cleanup(func() { first.Stop() })
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second := newDaemon(t, cfg, store)
	err := second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDaemonStartFailsStuckJobs(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.InsertJob(t, store, "stuck-1", "Lost Cities", "History")
	if err := store.UpdateStatus(ctx, job.ID, queue.StatusProcessing, queue.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	d := newDaemon(t, cfg, store)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { d.Stop() })

	recovered, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if recovered.Status != queue.StatusFailed {
		t.Fatalf("expected stuck job to be failed, got %s", recovered.Status)
	}
	if recovered.ErrorMessage != queue.StuckJobMessage {
		t.Fatalf("unexpected error message: %q", recovered.ErrorMessage)
	}
}

func TestEnqueue(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)
	ctx := context.Background()

	job, err := d.Enqueue(ctx, "  Morning Routines  ", "", "", "")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Topic != "Morning Routines" {
		t.Fatalf("unexpected topic %q", job.Topic)
	}
	if job.Category != "General" {
		t.Fatalf("expected default category, got %q", job.Category)
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}
	if job.MetaJSON == "" || job.MetaJSON == "{}" {
		t.Fatalf("expected default params meta, got %q", job.MetaJSON)
	}

	if _, err := d.Enqueue(ctx, "   ", "", "", ""); err == nil {
		t.Fatal("expected error for blank topic")
	}
}

func TestEnqueueKeepsExplicitFields(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	job, err := d.Enqueue(context.Background(), "Silk Road", "History", "abc123", `{"paragraphs":4}`)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.Category != "History" {
		t.Fatalf("unexpected category %q", job.Category)
	}
	if job.PromptHash != "abc123" {
		t.Fatalf("unexpected prompt hash %q", job.PromptHash)
	}
	if job.MetaJSON != `{"paragraphs":4}` {
		t.Fatalf("unexpected meta %q", job.MetaJSON)
	}
}

func TestRate(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)
	ctx := context.Background()

	job := testsupport.InsertJob(t, store, "rate-1", "Deep Sea", "Science")

	if err := d.Rate(ctx, job.ID, 0); err == nil {
		t.Fatal("expected error for rating below range")
	}
	if err := d.Rate(ctx, job.ID, 6); err == nil {
		t.Fatal("expected error for rating above range")
	}
	if err := d.Rate(ctx, "missing", 3); err == nil {
		t.Fatal("expected error for unknown job")
	}

	if err := d.Rate(ctx, job.ID, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	rated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 4 {
		t.Fatalf("expected rating 4, got %v", rated.Rating)
	}
}

func TestClearStatus(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)
	ctx := context.Background()

	testsupport.InsertJob(t, store, "done-1", "Topic A", "General")
	testsupport.InsertJob(t, store, "failed-1", "Topic B", "General")
	testsupport.InsertJob(t, store, "pending-1", "Topic C", "General")
	if err := store.UpdateStatus(ctx, "done-1", queue.StatusSuccess, queue.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := store.UpdateStatus(ctx, "failed-1", queue.StatusFailed, queue.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if _, err := d.ClearStatus(ctx, "pending"); err == nil {
		t.Fatal("expected error clearing pending jobs")
	}
	if _, err := d.ClearStatus(ctx, "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}

	removed, err := d.ClearStatus(ctx, "success")
	if err != nil {
		t.Fatalf("ClearStatus success: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	removed, err = d.ClearStatus(ctx, "")
	if err != nil {
		t.Fatalf("ClearStatus all: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
}

func TestRetryFailedByCategory(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)
	ctx := context.Background()

	testsupport.InsertJob(t, store, "hist-1", "Topic A", "History")
	testsupport.InsertJob(t, store, "sci-1", "Topic B", "Science")
	for _, id := range []string{"hist-1", "sci-1"} {
		if err := store.UpdateStatus(ctx, id, queue.StatusFailed, queue.StatusUpdate{}); err != nil {
			t.Fatalf("UpdateStatus: %v", err)
		}
	}

	reset, err := d.RetryFailed(ctx, "History")
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset, got %d", reset)
	}

	histJob, err := store.GetByID(ctx, "hist-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if histJob.Status != queue.StatusPending {
		t.Fatalf("expected hist-1 pending, got %s", histJob.Status)
	}
	sciJob, err := store.GetByID(ctx, "sci-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if sciJob.Status != queue.StatusFailed {
		t.Fatalf("expected sci-1 untouched, got %s", sciJob.Status)
	}
}

func TestResetJobNotFound(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	err := d.ResetJob(context.Background(), "nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestQueueListFilters(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)
	ctx := context.Background()

	testsupport.InsertJob(t, store, "a", "Topic A", "History")
	testsupport.InsertJob(t, store, "b", "Topic B", "History")
	testsupport.InsertJob(t, store, "c", "Topic C", "Science")
	if err := store.UpdateStatus(ctx, "b", queue.StatusFailed, queue.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	all, err := d.QueueList(ctx, nil, "")
	if err != nil {
		t.Fatalf("QueueList all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}

	history, err := d.QueueList(ctx, nil, "History")
	if err != nil {
		t.Fatalf("QueueList category: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history jobs, got %d", len(history))
	}

	failedHistory, err := d.QueueList(ctx, []queue.Status{queue.StatusFailed}, "History")
	if err != nil {
		t.Fatalf("QueueList category+status: %v", err)
	}
	if len(failedHistory) != 1 || failedHistory[0].ID != "b" {
		t.Fatalf("expected only job b, got %v", failedHistory)
	}
}

func TestCacheClearExpiredDisabled(t *testing.T) {
	cfg := testConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	if _, err := d.CacheClearExpired(context.Background()); err == nil {
		t.Fatal("expected error when cache is disabled")
	}
}
