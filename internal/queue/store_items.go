package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Insert enqueues a new pending job. Inserting an id that already exists is
// a no-op and leaves the existing row unchanged; the returned flag reports
// whether a row was created.
func (s *Store) Insert(ctx context.Context, job NewJob) (bool, error) {
	if strings.TrimSpace(job.ID) == "" {
		return false, errors.New("job id is required")
	}
	if strings.TrimSpace(job.Topic) == "" {
		return false, errors.New("job topic is required")
	}
	meta := job.MetaJSON
	if strings.TrimSpace(meta) == "" {
		meta = "{}"
	}
	now := timestamp(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO jobs (
            id, topic, category, status, prompt_hash, meta_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Topic,
		job.Category,
		StatusPending,
		nullableString(job.PromptHash),
		meta,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("insert job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetByID fetches a job by identifier. Returns nil when no row matches.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByTopic returns the most recent job for a topic, or nil when the
// topic has never been enqueued. Batch tooling uses this to keep enqueue
// idempotent across re-runs of the same topics file.
func (s *Store) FindByTopic(ctx context.Context, topic string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE topic = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		topic,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find job by topic: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), ordered oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	return s.ListFiltered(ctx, "", statuses...)
}

// ListByCategory returns jobs in a category ordered oldest first.
func (s *Store) ListByCategory(ctx context.Context, category string) ([]*Job, error) {
	return s.ListFiltered(ctx, category)
}

// ListFiltered returns jobs matching the optional category and status set,
// ordered oldest first. Empty category with no statuses lists everything.
func (s *Store) ListFiltered(ctx context.Context, category string, statuses ...Status) ([]*Job, error) {
	var (
		clauses []string
		args    []any
	)
	if category != "" {
		clauses = append(clauses, `category = ?`)
		args = append(args, category)
	}
	if len(statuses) > 0 {
		clauses = append(clauses, `status IN (`+makePlaceholders(len(statuses))+`)`)
		for _, status := range statuses {
			args = append(args, status)
		}
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
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

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only succeeded jobs from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusSuccess)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
