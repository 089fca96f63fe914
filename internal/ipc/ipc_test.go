package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"reelforge/internal/daemon"
	"reelforge/internal/ipc"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/queue"
	"reelforge/internal/testsupport"
	"reelforge/internal/worker"
)

type noopRunner struct{}

func (noopRunner) Run(context.Context, *pipeline.Task) error { return nil }

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerCount(2))
	// Without a key the LLM preflight check fails fast instead of dialing out.
	cfg.Gemini.APIKey = ""
	cfg.LLM.APIKey = ""
	store := testsupport.MustOpenStore(t, cfg)
	cache := testsupport.MustOpenCache(t, cfg)
	logger := logging.NewNop()
	pool := worker.New(store, noopRunner{}, cfg, logger, nil)
	d, err := daemon.New(cfg, store, cache, pool, logger, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	shutdownCalled := make(chan struct{})
	var shutdownOnce sync.Once
	shutdown := func() { shutdownOnce.Do(func() { close(shutdownCalled) }) }

	socket := ipc.SocketPath(cfg)
	srv, err := ipc.NewServer(ctx, socket, d, logger, shutdown)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to report stopped before start")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.Workers != 2 {
		t.Fatalf("expected 2 workers, got %d", status.Workers)
	}
	if !strings.HasSuffix(status.QueueDBPath, "queue.db") {
		t.Fatalf("unexpected queue db path: %s", status.QueueDBPath)
	}
	if len(status.Checks) == 0 {
		t.Fatal("expected preflight checks in status")
	}

	logPath := d.LogPath()
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
		close(followDone)
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		_, _ = f.WriteString("fourth\n")
		_ = f.Close()
	} else {
		t.Fatalf("append log: %v", err)
	}

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}
	select {
	case <-shutdownCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("expected shutdown callback after stop")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}

	// Queue operations keep working after the pool stops.
	morning, err := client.Enqueue(ipc.EnqueueRequest{Topic: "Morning Routines"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if morning.Job.ID == "" || morning.Job.Status != string(queue.StatusPending) {
		t.Fatalf("unexpected enqueue response: %#v", morning.Job)
	}
	if morning.Job.Category != "General" {
		t.Fatalf("expected default category, got %q", morning.Job.Category)
	}

	silk, err := client.Enqueue(ipc.EnqueueRequest{
		Topic:    "Silk Road",
		Category: "History",
		MetaJSON: `{"paragraphs":4}`,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if silk.Job.MetaJSON != `{"paragraphs":4}` {
		t.Fatalf("expected meta to round-trip, got %q", silk.Job.MetaJSON)
	}

	topicsPath := filepath.Join(testsupport.BaseDir(cfg), "topics.txt")
	topics := "History_01_Great Wall\nScience_02_Volcanoes\n"
	if err := os.WriteFile(topicsPath, []byte(topics), 0o644); err != nil {
		t.Fatalf("write topics file: %v", err)
	}
	batchResp, err := client.EnqueueBatch(ipc.EnqueueBatchRequest{Path: topicsPath})
	if err != nil {
		t.Fatalf("EnqueueBatch failed: %v", err)
	}
	if len(batchResp.Report.Entries) != 2 {
		t.Fatalf("expected 2 batch entries, got %d", len(batchResp.Report.Entries))
	}
	var greatWallID, volcanoesID string
	for _, entry := range batchResp.Report.Entries {
		if entry.Outcome != "enqueued" {
			t.Fatalf("expected enqueued outcome, got %#v", entry)
		}
		switch entry.Subject {
		case "Great Wall":
			greatWallID = entry.JobID
		case "Volcanoes":
			volcanoesID = entry.JobID
		}
	}
	if greatWallID == "" || volcanoesID == "" {
		t.Fatalf("missing batch job ids: %#v", batchResp.Report.Entries)
	}

	listResp, err := client.QueueList(nil, "")
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(listResp.Jobs) != 4 {
		t.Fatalf("expected 4 queue jobs, got %d", len(listResp.Jobs))
	}

	historyResp, err := client.QueueList([]string{"pending"}, "History")
	if err != nil {
		t.Fatalf("QueueList filter failed: %v", err)
	}
	if len(historyResp.Jobs) != 2 {
		t.Fatalf("expected 2 pending history jobs, got %d", len(historyResp.Jobs))
	}

	if _, err := client.QueueList([]string{"bogus"}, ""); err == nil {
		t.Fatal("expected error for unknown status filter")
	}

	statsResp, err := client.QueueStats()
	if err != nil {
		t.Fatalf("QueueStats failed: %v", err)
	}
	if statsResp.Stats.Total != 4 || statsResp.Stats.Pending != 4 {
		t.Fatalf("unexpected stats: %#v", statsResp.Stats)
	}

	if err := store.UpdateStatus(ctx, greatWallID, queue.StatusFailed, queue.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	retryResp, err := client.QueueRetry("History")
	if err != nil {
		t.Fatalf("QueueRetry failed: %v", err)
	}
	if retryResp.Reset != 1 {
		t.Fatalf("expected 1 job reset, got %d", retryResp.Reset)
	}

	if err := store.UpdateStatus(ctx, greatWallID, queue.StatusFailed, queue.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	resetResp, err := client.QueueReset(greatWallID)
	if err != nil {
		t.Fatalf("QueueReset failed: %v", err)
	}
	if !resetResp.Reset {
		t.Fatal("expected reset to be acknowledged")
	}

	rateResp, err := client.Rate(morning.Job.ID, 5)
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if !rateResp.Rated {
		t.Fatal("expected rating to be acknowledged")
	}

	if err := store.UpdateStatus(ctx, volcanoesID, queue.StatusProcessing, queue.StatusUpdate{}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	stuckResp, err := client.FailStuck(0)
	if err != nil {
		t.Fatalf("FailStuck failed: %v", err)
	}
	if stuckResp.Failed != 1 {
		t.Fatalf("expected 1 stuck job failed, got %d", stuckResp.Failed)
	}

	deleteResp, err := client.QueueDelete(morning.Job.ID)
	if err != nil {
		t.Fatalf("QueueDelete failed: %v", err)
	}
	if !deleteResp.Removed {
		t.Fatal("expected delete to remove the job")
	}

	clearFailedResp, err := client.QueueClear("failed")
	if err != nil {
		t.Fatalf("QueueClear failed status: %v", err)
	}
	if clearFailedResp.Removed != 1 {
		t.Fatalf("expected 1 failed job removed, got %d", clearFailedResp.Removed)
	}

	clearAllResp, err := client.QueueClear("")
	if err != nil {
		t.Fatalf("QueueClear all: %v", err)
	}
	if clearAllResp.Removed != 2 {
		t.Fatalf("expected 2 jobs cleared, got %d", clearAllResp.Removed)
	}

	healthResp, err := client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if !strings.HasSuffix(healthResp.DBPath, "queue.db") {
		t.Fatalf("unexpected db path: %s", healthResp.DBPath)
	}
	if !healthResp.TableExists || !healthResp.IntegrityCheck {
		t.Fatalf("unexpected health response: %#v", healthResp)
	}

	cacheResp, err := client.CacheClearExpired()
	if err != nil {
		t.Fatalf("CacheClearExpired failed: %v", err)
	}
	if cacheResp.Removed != 0 {
		t.Fatalf("expected 0 expired entries, got %d", cacheResp.Removed)
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if !notifyResp.Sent {
		t.Fatal("expected notification to be sent")
	}
}
