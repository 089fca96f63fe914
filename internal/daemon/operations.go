package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelforge/internal/batch"
	"reelforge/internal/notifications"
	"reelforge/internal/preflight"
	"reelforge/internal/queue"
)

// Status is a point-in-time snapshot of the daemon runtime, served to the
// CLI over IPC.
type Status struct {
	Running     bool
	PID         int
	Started     time.Time
	Uptime      time.Duration
	Workers     int
	LockPath    string
	QueueDBPath string
	Queue       queue.HealthSummary
	Checks      []preflight.Result
}

// Status reports daemon liveness, worker count, queue counts, and the
// preflight results captured at startup.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	summary, err := d.store.Health(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("queue health: %w", err)
	}

	d.mu.Lock()
	checks := make([]preflight.Result, len(d.checks))
	copy(checks, d.checks)
	d.mu.Unlock()

	status := Status{
		Running:     d.running.Load(),
		PID:         d.PID(),
		Started:     d.started,
		Workers:     d.pool.Workers(),
		LockPath:    d.lockPath,
		QueueDBPath: d.store.Path(),
		Queue:       summary,
		Checks:      checks,
	}
	if status.Running {
		status.Uptime = time.Since(d.started)
	}
	return status, nil
}

// QueueList returns jobs filtered by optional statuses and category,
// ordered oldest first.
func (d *Daemon) QueueList(ctx context.Context, statuses []queue.Status, category string) ([]*queue.Job, error) {
	return d.store.ListFiltered(ctx, category, statuses...)
}

// QueueStats returns aggregated per-status job counts.
func (d *Daemon) QueueStats(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// QueueHealth runs the queue database diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// Enqueue inserts a single pending job for a topic. The metaJSON carries
// the pipeline parameters; when empty the configured defaults apply.
func (d *Daemon) Enqueue(ctx context.Context, topic, category, promptHash, metaJSON string) (*queue.Job, error) {
	return d.batch.Enqueue(ctx, topic, category, promptHash, metaJSON)
}

// EnqueueBatch runs a topics-file enqueue and returns the per-topic report.
func (d *Daemon) EnqueueBatch(ctx context.Context, path string, opts batch.Options) (*batch.Report, error) {
	return d.batch.EnqueueFile(ctx, path, opts)
}

// RetryFailed returns failed and stuck jobs to pending, optionally narrowed
// to one category. Returns the number of jobs reset.
func (d *Daemon) RetryFailed(ctx context.Context, category string) (int, error) {
	jobs, err := d.store.Retryable(ctx, category)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, job := range jobs {
		if err := d.store.ResetForRetry(ctx, job.ID); err != nil {
			return reset, fmt.Errorf("reset job %s: %w", job.ID, err)
		}
		reset++
	}
	return reset, nil
}

// ResetJob returns one job to pending with cleared error state.
func (d *Daemon) ResetJob(ctx context.Context, id string) error {
	job, err := d.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}
	return d.store.ResetForRetry(ctx, id)
}

// FailStuck fails jobs that have sat in processing longer than timeout.
// A zero timeout fails every processing job.
func (d *Daemon) FailStuck(ctx context.Context, timeout time.Duration) (int64, error) {
	return d.store.FailStuck(ctx, timeout)
}

// Rate records a 1-5 operator rating on a finished job.
func (d *Daemon) Rate(ctx context.Context, id string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	job, err := d.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}
	return d.store.Rate(ctx, id, rating)
}

// DeleteJob removes a job from the queue. The returned flag reports
// whether a row existed.
func (d *Daemon) DeleteJob(ctx context.Context, id string) (bool, error) {
	return d.store.Remove(ctx, id)
}

// ClearStatus removes finished jobs. An empty status clears the whole
// queue; otherwise only success or failed may be cleared in bulk.
func (d *Daemon) ClearStatus(ctx context.Context, status string) (int64, error) {
	parsed, ok := queue.ParseStatus(status)
	if status != "" && !ok {
		return 0, fmt.Errorf("unknown status %q", status)
	}
	switch parsed {
	case "":
		return d.store.Clear(ctx)
	case queue.StatusSuccess:
		return d.store.ClearCompleted(ctx)
	case queue.StatusFailed:
		return d.store.ClearFailed(ctx)
	default:
		return 0, fmt.Errorf("cannot bulk-clear jobs in status %q", parsed)
	}
}

// CacheClearExpired evicts response cache entries past their TTL.
func (d *Daemon) CacheClearExpired(ctx context.Context) (int64, error) {
	if d.cache == nil {
		return 0, errors.New("response cache disabled")
	}
	return d.cache.ClearExpired(ctx)
}

// TestNotification publishes a test event so operators can verify their
// ntfy topic end to end.
func (d *Daemon) TestNotification(ctx context.Context) error {
	if d.notifier == nil {
		return errors.New("notifications not configured")
	}
	return d.notifier.Publish(ctx, notifications.EventTest, nil)
}
