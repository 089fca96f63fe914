package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/notifications"
	"reelforge/internal/pipeline"
	"reelforge/internal/queue"
	"reelforge/internal/services"
)

// MaxWorkers caps the pool size regardless of configuration. Every worker
// holds an LLM session and an ffmpeg render slot, so more workers past this
// point just thrash the machine.
const MaxWorkers = 5

// stopTimeout bounds how long Stop waits for in-flight jobs before giving
// up the join. Jobs still running at that point finish on their own or are
// reclaimed as stuck at the next daemon startup.
const stopTimeout = 5 * time.Second

// Runner drives one generation task to a terminal state.
type Runner interface {
	Run(ctx context.Context, task *pipeline.Task) error
}

// Pool drains the queue with a fixed set of worker goroutines. Each worker
// claims pending jobs, runs the pipeline, and records the outcome. The pool
// is safe to start and stop from any goroutine.
type Pool struct {
	store    *queue.Store
	orch     Runner
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	workers int
	wg      sync.WaitGroup

	// batchActive tracks whether a drain is in progress, for the
	// batch-complete notification when the queue empties.
	batchActive bool
	batchStart  time.Time
}

// New builds a worker pool over the given store and orchestrator. A nil
// notifier falls back to the config-derived service, which is a no-op when
// no ntfy topic is set.
func New(store *queue.Store, orch Runner, cfg *config.Config, logger *slog.Logger, notifier notifications.Service) *Pool {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Pool{
		store:    store,
		orch:     orch,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "worker"),
		notifier: notifier,
	}
}

// Start launches n worker goroutines. Zero or negative n falls back to the
// configured worker count; the result is clamped to [1, MaxWorkers].
func (p *Pool) Start(ctx context.Context, n int) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("worker pool already running")
	}
	if p.store == nil || p.orch == nil {
		p.mu.Unlock()
		return errors.New("worker pool missing store or orchestrator")
	}
	if n <= 0 {
		n = p.cfg.Workers.Count
	}
	if n < 1 {
		n = 1
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.workers = n
	p.wg.Add(n)
	p.mu.Unlock()

	for slot := 1; slot <= n; slot++ {
		go p.runWorker(runCtx, slot)
	}

	p.logger.Info("worker pool started",
		logging.Int("workers", n),
		logging.String(logging.FieldEventType, "pool_started"),
	)
	return nil
}

// Stop signals the workers and waits for them to exit. The signal is
// observed between claims, never mid-job: an in-flight job finishes
// naturally. The join gives up after stopTimeout so shutdown cannot hang
// behind a long render.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.workers = 0
	p.cancel = nil
	p.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("worker pool stopped",
			logging.String(logging.FieldEventType, "pool_stopped"),
		)
	case <-time.After(stopTimeout):
		p.logger.Warn("worker pool stop timed out with jobs still in flight",
			logging.String(logging.FieldEventType, "pool_stop_timeout"),
			logging.String(logging.FieldImpact, "jobs left processing are failed as stuck at next startup"),
		)
	}
}

// Running reports whether the pool has been started and not yet stopped.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Workers returns the number of active worker goroutines, zero when stopped.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

func (p *Pool) runWorker(ctx context.Context, slot int) {
	defer p.wg.Done()
	logger := p.logger.With(logging.Int(logging.FieldWorker, slot))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.store.ClaimNextPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_claim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			p.pause(ctx, p.errorInterval())
			continue
		}
		if job == nil {
			p.pause(ctx, p.pollInterval())
			continue
		}

		p.processJob(ctx, logger, job)
	}
}

// processJob runs one claimed job end to end and records its outcome. The
// job itself runs on a context detached from the pool's stop signal: stop
// means "no new claims", not "abort the render".
func (p *Pool) processJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	logger = logger.With(logging.String(logging.FieldJobID, job.ID))
	attempt := job.Attempts + 1
	logger.Info("job claimed",
		logging.String("topic", job.Topic),
		logging.Int("attempt", attempt),
		logging.String(logging.FieldEventType, "job_claimed"),
	)

	p.noteBatchStarted()

	params, ok := pipeline.ParseMeta([]byte(job.MetaJSON), job.Topic)
	if !ok {
		logger.Warn("job meta unreadable; falling back to topic defaults",
			logging.String(logging.FieldEventType, "job_meta_invalid"),
		)
	}
	// Queue jobs always run the full pipeline. stop_at is a foreground-run
	// control; honoring it here would leave jobs without a video to report.
	params.StopAt = ""

	task := pipeline.NewTask(job.ID, params)
	jobCtx := context.WithoutCancel(ctx)

	started := time.Now()
	runErr := p.runTask(jobCtx, task)
	elapsed := time.Since(started)

	p.recordOutcome(ctx, jobCtx, logger, job, task, runErr, attempt, elapsed)
	p.checkBatchCompletion(jobCtx, logger)
}

// runTask invokes the orchestrator with panic isolation so a crashing stage
// is recorded as a job failure instead of killing the worker goroutine.
func (p *Pool) runTask(ctx context.Context, task *pipeline.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return p.orch.Run(ctx, task)
}

func (p *Pool) recordOutcome(poolCtx, ctx context.Context, logger *slog.Logger, job *queue.Job, task *pipeline.Task, runErr error, attempt int, elapsed time.Duration) {
	switch {
	case runErr == nil && len(task.VideoPaths) > 0:
		output := task.VideoPaths[0]
		cleared := ""
		update := queue.StatusUpdate{
			ErrorMessage: &cleared,
			OutputPath:   &output,
			Attempts:     &attempt,
		}
		if err := p.store.UpdateStatus(ctx, job.ID, queue.StatusSuccess, update); err != nil {
			logger.Error("failed to record job success",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_update_failed"),
			)
			break
		}
		logger.Info("job complete",
			logging.String("output", output),
			logging.Float64("duration_seconds", elapsed.Seconds()),
			logging.String(logging.FieldEventType, "job_complete"),
		)
		p.notify(ctx, notifications.EventJobComplete, notifications.Payload{
			"topic":  job.Topic,
			"output": output,
		})
	case runErr == nil:
		// The pipeline reported success but produced nothing to publish.
		p.failJob(ctx, logger, job, "no video produced", attempt)
	case services.IsTransient(runErr) && attempt < p.maxAttempts():
		// The job stays claimed through the retry delay so no other worker
		// picks it up early. A pool stop cuts the delay short; the requeue
		// itself still happens so the job survives as pending.
		if delay := p.retryDelay(attempt); delay > 0 {
			logger.Warn("transient failure; delaying retry",
				logging.Error(runErr),
				logging.Int("attempt", attempt),
				logging.Float64("delay_seconds", delay.Seconds()),
				logging.String(logging.FieldEventType, "job_retry_delay"),
			)
			p.pause(poolCtx, delay)
		}
		message := services.Details(runErr)
		update := queue.StatusUpdate{ErrorMessage: &message, Attempts: &attempt}
		if err := p.store.UpdateStatus(ctx, job.ID, queue.StatusPending, update); err != nil {
			logger.Error("failed to requeue job after transient failure",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_update_failed"),
			)
			break
		}
		logger.Warn("transient failure; job requeued",
			logging.Error(runErr),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", p.maxAttempts()),
			logging.String(logging.FieldEventType, "job_requeued"),
		)
	default:
		p.failJob(ctx, logger, job, services.Details(runErr), attempt)
	}

	if err := p.store.UpdateDuration(ctx, job.ID, elapsed.Seconds()); err != nil {
		logger.Warn("failed to record job duration",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_update_failed"),
		)
	}
}

func (p *Pool) failJob(ctx context.Context, logger *slog.Logger, job *queue.Job, message string, attempt int) {
	update := queue.StatusUpdate{ErrorMessage: &message, Attempts: &attempt}
	if err := p.store.UpdateStatus(ctx, job.ID, queue.StatusFailed, update); err != nil {
		logger.Error("failed to record job failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_update_failed"),
		)
		return
	}
	logger.Error("job failed",
		logging.String("error", message),
		logging.Int("attempt", attempt),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorHint, "inspect with 'reelforge queue list --status failed'"),
	)
	p.notify(ctx, notifications.EventJobFailed, notifications.Payload{
		"topic": job.Topic,
		"error": message,
	})
}

// notify publishes a lifecycle event. Notification failures are logged and
// swallowed; they never affect job state.
func (p *Pool) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		p.logger.Warn("notification publish failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
		)
	}
}

// retryDelay returns the configured pause before requeueing the given
// failed attempt. Attempts past the end of the table reuse its last entry.
func (p *Pool) retryDelay(attempt int) time.Duration {
	if p.cfg == nil || len(p.cfg.Workers.RetryDelays) == 0 {
		return 0
	}
	delays := p.cfg.Workers.RetryDelays
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(delays) {
		idx = len(delays) - 1
	}
	if delays[idx] <= 0 {
		return 0
	}
	return time.Duration(delays[idx]) * time.Second
}

func (p *Pool) maxAttempts() int {
	if p.cfg == nil || p.cfg.Workers.MaxAttempts < 1 {
		return 1
	}
	return p.cfg.Workers.MaxAttempts
}

func (p *Pool) pollInterval() time.Duration {
	seconds := 2
	if p.cfg != nil && p.cfg.Workers.QueuePollInterval > 0 {
		seconds = p.cfg.Workers.QueuePollInterval
	}
	return time.Duration(seconds) * time.Second
}

func (p *Pool) errorInterval() time.Duration {
	seconds := 5
	if p.cfg != nil && p.cfg.Workers.ErrorRetryInterval > 0 {
		seconds = p.cfg.Workers.ErrorRetryInterval
	}
	return time.Duration(seconds) * time.Second
}

func (p *Pool) pause(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
