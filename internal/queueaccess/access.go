// Package queueaccess gives CLI commands one queue-operations surface that
// works whether or not the daemon is up: IPC-backed when the socket answers,
// direct store access otherwise. Both backings speak the IPC wire types so
// command output is identical either way.
package queueaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"reelforge/internal/batch"
	"reelforge/internal/config"
	"reelforge/internal/ipc"
	"reelforge/internal/queue"
	"reelforge/internal/respcache"
)

// Access provides operator queue commands regardless of backing.
type Access interface {
	List(ctx context.Context, statuses []string, category string) ([]ipc.Job, error)
	Stats(ctx context.Context) (ipc.QueueStats, error)
	Health(ctx context.Context) (*ipc.QueueHealthResponse, error)
	Enqueue(ctx context.Context, req ipc.EnqueueRequest) (*ipc.Job, error)
	EnqueueBatch(ctx context.Context, req ipc.EnqueueBatchRequest) (*batch.Report, error)
	Retry(ctx context.Context, category string) (int, error)
	Reset(ctx context.Context, id string) error
	FailStuck(ctx context.Context, timeoutSeconds int) (int64, error)
	Rate(ctx context.Context, id string, rating int) error
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context, status string) (int64, error)
	CacheClearExpired(ctx context.Context) (int64, error)
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct database access, used
// when no daemon is running.
func NewStoreAccess(store *queue.Store, cfg *config.Config, logger *slog.Logger) Access {
	return &storeAccess{
		store: store,
		cfg:   cfg,
		batch: batch.NewService(store, cfg, logger),
	}
}

type ipcAccess struct {
	client *ipc.Client
}

func (a *ipcAccess) List(_ context.Context, statuses []string, category string) ([]ipc.Job, error) {
	resp, err := a.client.QueueList(statuses, category)
	if err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (a *ipcAccess) Stats(_ context.Context) (ipc.QueueStats, error) {
	resp, err := a.client.QueueStats()
	if err != nil {
		return ipc.QueueStats{}, err
	}
	return resp.Stats, nil
}

func (a *ipcAccess) Health(_ context.Context) (*ipc.QueueHealthResponse, error) {
	return a.client.QueueHealth()
}

func (a *ipcAccess) Enqueue(_ context.Context, req ipc.EnqueueRequest) (*ipc.Job, error) {
	resp, err := a.client.Enqueue(req)
	if err != nil {
		return nil, err
	}
	return &resp.Job, nil
}

func (a *ipcAccess) EnqueueBatch(_ context.Context, req ipc.EnqueueBatchRequest) (*batch.Report, error) {
	resp, err := a.client.EnqueueBatch(req)
	if err != nil {
		return nil, err
	}
	return resp.Report.ToReport(), nil
}

func (a *ipcAccess) Retry(_ context.Context, category string) (int, error) {
	resp, err := a.client.QueueRetry(category)
	if err != nil {
		return 0, err
	}
	return resp.Reset, nil
}

func (a *ipcAccess) Reset(_ context.Context, id string) error {
	_, err := a.client.QueueReset(id)
	return err
}

func (a *ipcAccess) FailStuck(_ context.Context, timeoutSeconds int) (int64, error) {
	resp, err := a.client.FailStuck(timeoutSeconds)
	if err != nil {
		return 0, err
	}
	return resp.Failed, nil
}

func (a *ipcAccess) Rate(_ context.Context, id string, rating int) error {
	_, err := a.client.Rate(id, rating)
	return err
}

func (a *ipcAccess) Delete(_ context.Context, id string) (bool, error) {
	resp, err := a.client.QueueDelete(id)
	if err != nil {
		return false, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) Clear(_ context.Context, status string) (int64, error) {
	resp, err := a.client.QueueClear(status)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *ipcAccess) CacheClearExpired(_ context.Context) (int64, error) {
	resp, err := a.client.CacheClearExpired()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

type storeAccess struct {
	store *queue.Store
	cfg   *config.Config
	batch *batch.Service
}

func (a *storeAccess) List(ctx context.Context, statuses []string, category string) ([]ipc.Job, error) {
	filters, err := parseStatuses(statuses)
	if err != nil {
		return nil, err
	}
	jobs, err := a.store.ListFiltered(ctx, category, filters...)
	if err != nil {
		return nil, err
	}
	return ipc.FromQueueJobs(jobs), nil
}

func (a *storeAccess) Stats(ctx context.Context) (ipc.QueueStats, error) {
	summary, err := a.store.Health(ctx)
	if err != nil {
		return ipc.QueueStats{}, err
	}
	return ipc.FromHealthSummary(summary), nil
}

func (a *storeAccess) Health(ctx context.Context) (*ipc.QueueHealthResponse, error) {
	health, err := a.store.CheckHealth(ctx)
	if err != nil {
		return nil, err
	}
	resp := ipc.FromDatabaseHealth(health)
	return &resp, nil
}

func (a *storeAccess) Enqueue(ctx context.Context, req ipc.EnqueueRequest) (*ipc.Job, error) {
	job, err := a.batch.Enqueue(ctx, req.Topic, req.Category, req.PromptHash, req.MetaJSON)
	if err != nil {
		return nil, err
	}
	dto := ipc.FromQueueJob(job)
	return &dto, nil
}

func (a *storeAccess) EnqueueBatch(ctx context.Context, req ipc.EnqueueBatchRequest) (*batch.Report, error) {
	return a.batch.EnqueueFile(ctx, req.Path, batch.Options{Category: req.Category, Resume: req.Resume})
}

func (a *storeAccess) Retry(ctx context.Context, category string) (int, error) {
	jobs, err := a.store.Retryable(ctx, category)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, job := range jobs {
		if err := a.store.ResetForRetry(ctx, job.ID); err != nil {
			return reset, fmt.Errorf("reset job %s: %w", job.ID, err)
		}
		reset++
	}
	return reset, nil
}

func (a *storeAccess) Reset(ctx context.Context, id string) error {
	job, err := a.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}
	return a.store.ResetForRetry(ctx, id)
}

func (a *storeAccess) FailStuck(ctx context.Context, timeoutSeconds int) (int64, error) {
	return a.store.FailStuck(ctx, time.Duration(timeoutSeconds)*time.Second)
}

func (a *storeAccess) Rate(ctx context.Context, id string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	job, err := a.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}
	return a.store.Rate(ctx, id, rating)
}

func (a *storeAccess) Delete(ctx context.Context, id string) (bool, error) {
	return a.store.Remove(ctx, id)
}

func (a *storeAccess) Clear(ctx context.Context, status string) (int64, error) {
	parsed, ok := queue.ParseStatus(status)
	if status != "" && !ok {
		return 0, fmt.Errorf("unknown status %q", status)
	}
	switch parsed {
	case "":
		return a.store.Clear(ctx)
	case queue.StatusSuccess:
		return a.store.ClearCompleted(ctx)
	case queue.StatusFailed:
		return a.store.ClearFailed(ctx)
	default:
		return 0, fmt.Errorf("cannot bulk-clear jobs in status %q", parsed)
	}
}

func (a *storeAccess) CacheClearExpired(ctx context.Context) (int64, error) {
	if a.cfg == nil || !a.cfg.Cache.Enabled {
		return 0, errors.New("response cache disabled")
	}
	cache, err := respcache.Open(a.cfg)
	if err != nil {
		return 0, err
	}
	defer cache.Close()
	return cache.ClearExpired(ctx)
}

func parseStatuses(statuses []string) ([]queue.Status, error) {
	var filters []queue.Status
	for _, raw := range statuses {
		parsed, ok := queue.ParseStatus(raw)
		if !ok {
			return nil, fmt.Errorf("unknown status %q", raw)
		}
		if parsed != "" {
			filters = append(filters, parsed)
		}
	}
	return filters, nil
}
