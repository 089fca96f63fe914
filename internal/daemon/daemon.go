package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reelforge/internal/batch"
	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/notifications"
	"reelforge/internal/preflight"
	"reelforge/internal/queue"
	"reelforge/internal/respcache"
	"reelforge/internal/worker"
)

// LockFileName is the flock file guarding single-instance execution.
const LockFileName = "reelforged.lock"

// LogPointerName is the stable name pointing at the current run's log file.
const LogPointerName = "reelforge.log"

// Daemon owns the background processing runtime: the worker pool, the queue
// store, the response cache, and the single-instance lock. Operator methods
// are served to the CLI over IPC.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	cache    *respcache.Cache
	pool     *worker.Pool
	notifier notifications.Service
	batch    *batch.Service

	lockPath string
	lock     *flock.Flock
	logPath  string

	running atomic.Bool
	started time.Time

	mu     sync.Mutex
	checks []preflight.Result
}

// New constructs a daemon from initialized dependencies. The cache may be
// nil when the response cache is disabled; everything else is required.
func New(cfg *config.Config, store *queue.Store, cache *respcache.Cache, pool *worker.Pool, logger *slog.Logger, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || pool == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, pool, and logger")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		cache:    cache,
		pool:     pool,
		notifier: notifier,
		batch:    batch.NewService(store, cfg, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		logPath:  filepath.Join(cfg.Paths.LogDir, LogPointerName),
	}, nil
}

// Start acquires the single-instance lock, runs and logs the preflight
// report, recovers jobs orphaned in processing by a previous run, and
// launches the worker pool.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return errors.New("another reelforged instance is already running")
	}

	checks := preflight.RunAll(ctx, d.cfg)
	d.mu.Lock()
	d.checks = checks
	d.mu.Unlock()
	d.logPreflight(checks)

	// Jobs left in processing belong to a dead worker; fail them so the
	// operator sees them instead of the pool silently skipping past.
	recovered, err := d.store.FailStuck(ctx, 0)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover stuck jobs: %w", err)
	}
	if recovered > 0 {
		d.logger.Warn("stuck jobs failed during startup recovery",
			logging.Int64("job_count", recovered),
			logging.String(logging.FieldEventType, "startup_recovery"),
			logging.String(logging.FieldErrorHint, "inspect with 'reelforge queue list --status failed' and retry what should run again"),
		)
	}

	if err := d.pool.Start(ctx, 0); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker pool: %w", err)
	}

	d.started = time.Now()
	d.running.Store(true)
	workers := d.pool.Workers()
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("workers", workers),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	d.notify(ctx, notifications.EventDaemonStarted, notifications.Payload{
		"workers": strconv.Itoa(workers),
	})
	return nil
}

// Stop shuts the worker pool down and releases the daemon lock. In-flight
// jobs finish naturally; the pool only stops claiming new ones.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.pool.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start refuses to run"),
			logging.String(logging.FieldImpact, "a stale lock may block the next daemon start"),
		)
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped",
		logging.Duration("uptime", time.Since(d.started)),
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
	d.notify(context.Background(), notifications.EventDaemonStopped, nil)
}

// Close stops the daemon and releases the store and cache.
func (d *Daemon) Close() error {
	d.Stop()
	var firstErr error
	if d.store != nil {
		firstErr = d.store.Close()
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Running reports whether the daemon has started and not yet stopped.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the single-instance lock file location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// LogPath returns the stable pointer to the current run's log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

func (d *Daemon) logPreflight(checks []preflight.Result) {
	for _, check := range checks {
		if check.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail),
				logging.String(logging.FieldEventType, "preflight_check"),
			)
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldEventType, "preflight_check"),
			logging.String(logging.FieldErrorHint, "fix the reported dependency before queueing work that needs it"),
			logging.String(logging.FieldImpact, "jobs relying on this dependency will fail"),
		)
	}
}

func (d *Daemon) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		d.logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldImpact, "push notification was not delivered"),
		)
	}
}

// PID returns the daemon process id for status reporting.
func (d *Daemon) PID() int {
	return os.Getpid()
}
