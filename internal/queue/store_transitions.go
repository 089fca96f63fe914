package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClaimNextPending atomically transitions the oldest pending job to
// processing and returns it. Returns nil when the queue has no pending
// jobs. Two concurrent callers never receive the same job: the claim runs
// inside a transaction and the status flip is guarded so a row claimed
// between select and update is skipped.
func (s *Store) ClaimNextPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	var claimed *Job
	err := retryOnBusy(ctx, func() error {
		job, err := s.claimNextPendingOnce(ctx)
		if err != nil {
			return err
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim next pending: %w", err)
	}
	return claimed, nil
}

func (s *Store) claimNextPendingOnce(ctx context.Context) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1`,
		StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProcessing,
		timestamp(now),
		job.ID,
		StatusPending,
	)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Lost the race to another claimer.
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.Status = StatusProcessing
	job.UpdatedAt = now
	return job, nil
}

// UpdateStatus performs a partial update of lifecycle fields. Only non-nil
// fields of the update are written.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, update StatusUpdate) error {
	setClauses := []string{"status = ?", "updated_at = ?"}
	args := []any{status, timestamp(time.Now())}

	if update.ErrorMessage != nil {
		setClauses = append(setClauses, "error_message = ?")
		args = append(args, *update.ErrorMessage)
	}
	if update.OutputPath != nil {
		setClauses = append(setClauses, "output_path = ?")
		args = append(args, *update.OutputPath)
	}
	if update.Attempts != nil {
		setClauses = append(setClauses, "attempts = ?")
		args = append(args, *update.Attempts)
	}
	args = append(args, id)

	query := "UPDATE jobs SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update status: job %s not found", id)
	}
	return nil
}

// UpdateDuration records the wall-clock runtime of a job, independent of
// its status.
func (s *Store) UpdateDuration(ctx context.Context, id string, seconds float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET duration_seconds = ?, updated_at = ? WHERE id = ?`,
		seconds,
		timestamp(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("update duration: %w", err)
	}
	return nil
}

// Rate records operator feedback for a finished job.
func (s *Store) Rate(ctx context.Context, id string, rating int) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET rating = ?, updated_at = ? WHERE id = ?`,
		rating,
		timestamp(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("rate job: %w", err)
	}
	return nil
}

// SetPromptHash tags a job with the hash of the prompt variant that
// produced it, for grouping A/B comparisons.
func (s *Store) SetPromptHash(ctx context.Context, id, hash string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET prompt_hash = ?, updated_at = ? WHERE id = ?`,
		nullableString(hash),
		timestamp(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("set prompt hash: %w", err)
	}
	return nil
}

// ResetForRetry returns a job to pending with a clean slate: the error
// message is cleared and attempts reset to zero.
func (s *Store) ResetForRetry(ctx context.Context, id string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, attempts = 0, error_message = '', updated_at = ? WHERE id = ?`,
		StatusPending,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("reset for retry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reset for retry: job %s not found", id)
	}
	return nil
}

// Requeue returns a job to pending while preserving its attempt counter.
// Used for transient-failure retries where attempts must keep counting.
func (s *Store) Requeue(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		StatusPending,
		timestamp(time.Now()),
		id,
	); err != nil {
		return fmt.Errorf("requeue job: %w", err)
	}
	return nil
}

// FailStuck bulk-transitions jobs abandoned in processing to failed with a
// sentinel error message. A timeout of zero fails every processing job,
// which is the recovery path after a crashed process. Returns the number of
// jobs transitioned.
func (s *Store) FailStuck(ctx context.Context, timeout time.Duration) (int64, error) {
	now := time.Now().UTC()
	var (
		res sql.Result
		err error
	)
	if timeout <= 0 {
		res, err = s.execWithRetry(
			ctx,
			`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
			StatusFailed,
			StuckJobMessage,
			timestamp(now),
			StatusProcessing,
		)
	} else {
		cutoff := now.Add(-timeout)
		res, err = s.execWithRetry(
			ctx,
			`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status = ? AND updated_at < ?`,
			StatusFailed,
			StuckJobMessage,
			timestamp(now),
			StatusProcessing,
			timestamp(cutoff),
		)
	}
	if err != nil {
		return 0, fmt.Errorf("fail stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// Retryable returns jobs eligible for operator-triggered bulk retry: those
// in failed or processing, optionally narrowed to one category.
func (s *Store) Retryable(ctx context.Context, category string) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status IN (?, ?)`
	args := []any{StatusFailed, StatusProcessing}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query retryable jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
