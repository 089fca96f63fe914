package worker

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"reelforge/internal/logging"
	"reelforge/internal/notifications"
	"reelforge/internal/queue"
)

// noteBatchStarted marks the beginning of a drain the first time a worker
// claims a job while the pool is idle.
func (p *Pool) noteBatchStarted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.batchActive {
		return
	}
	p.batchActive = true
	p.batchStart = time.Now()
}

// checkBatchCompletion publishes the batch-complete notification once no
// pending or processing jobs remain. Guarded by the batchActive flag so
// concurrent workers finishing together announce the drain once.
func (p *Pool) checkBatchCompletion(ctx context.Context, logger *slog.Logger) {
	stats, err := p.store.Stats(ctx)
	if err != nil {
		logger.Warn("queue stats unavailable; batch completion check skipped",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_stats_failed"),
		)
		return
	}
	if stats[queue.StatusPending]+stats[queue.StatusProcessing] > 0 {
		return
	}

	p.mu.Lock()
	if !p.batchActive {
		p.mu.Unlock()
		return
	}
	start := p.batchStart
	p.batchActive = false
	p.batchStart = time.Time{}
	p.mu.Unlock()

	elapsed := time.Duration(0)
	if !start.IsZero() {
		elapsed = time.Since(start)
	}
	succeeded := stats[queue.StatusSuccess]
	failed := stats[queue.StatusFailed]
	logger.Info("queue drained",
		logging.Int("succeeded", succeeded),
		logging.Int("failed", failed),
		logging.Float64("duration_seconds", elapsed.Seconds()),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	p.notify(ctx, notifications.EventBatchComplete, notifications.Payload{
		"succeeded": strconv.Itoa(succeeded),
		"failed":    strconv.Itoa(failed),
	})
}
