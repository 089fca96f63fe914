package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelforge/internal/config"
	"reelforge/internal/logging"
	"reelforge/internal/pipeline"
	"reelforge/internal/queue"
)

// Options control one enqueue run.
type Options struct {
	// Category overrides the parsed category for every topic.
	Category string
	// Resume resets previously failed or stuck jobs instead of enqueueing
	// new ones. Topics without a prior job are skipped.
	Resume bool
}

// Service enqueues topics files into the job queue.
type Service struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewService builds the batch enqueuer over the given store.
func NewService(store *queue.Store, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "batch"),
	}
}

// EnqueueFile loads a topics file and enqueues (or, in resume mode, resets)
// a job per topic. Individual topic failures are recorded in the report
// rather than aborting the run.
func (s *Service) EnqueueFile(ctx context.Context, path string, opts Options) (*Report, error) {
	topics, err := LoadTopics(path)
	if err != nil {
		return nil, err
	}

	report := &Report{File: path, Resume: opts.Resume, Started: time.Now()}
	for _, raw := range topics {
		entry := s.enqueueTopic(ctx, raw, opts)
		report.Entries = append(report.Entries, entry)

		switch entry.Outcome {
		case OutcomeFailed:
			s.logger.Error("batch topic failed",
				logging.String("topic", raw),
				logging.String("detail", entry.Detail),
				logging.String(logging.FieldEventType, "batch_topic_failed"),
			)
		default:
			s.logger.Debug("batch topic handled",
				logging.String("topic", raw),
				logging.String("outcome", string(entry.Outcome)),
				logging.String("detail", entry.Detail),
			)
		}
	}
	report.Elapsed = time.Since(report.Started)

	s.logger.Info("batch run complete",
		logging.String("file", path),
		logging.Int("topics", len(report.Entries)),
		logging.Int("enqueued", report.Count(OutcomeEnqueued)),
		logging.Int("reset", report.Count(OutcomeReset)),
		logging.Int("skipped", report.Count(OutcomeSkipped)),
		logging.Int("failed", report.Count(OutcomeFailed)),
		logging.String(logging.FieldEventType, "batch_enqueued"),
	)
	return report, nil
}

// Enqueue inserts a single ad-hoc job. Unlike file runs it never dedupes
// against existing topics: an operator enqueueing the same topic twice gets
// two jobs. Empty category and meta fall back to the configured defaults.
func (s *Service) Enqueue(ctx context.Context, topic, category, promptHash, metaJSON string) (*queue.Job, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	if category == "" {
		category = DefaultCategory
	}
	if strings.TrimSpace(metaJSON) == "" {
		metaJSON = string(pipeline.ParamsFromConfig(s.cfg, topic).Meta())
	}

	id := uuid.NewString()
	created, err := s.store.Insert(ctx, queue.NewJob{
		ID:         id,
		Topic:      topic,
		Category:   category,
		MetaJSON:   metaJSON,
		PromptHash: promptHash,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("job id %s already present", id)
	}
	s.logger.Info("job enqueued",
		logging.String(logging.FieldJobID, id),
		logging.String("topic", topic),
		logging.String("category", category),
		logging.String(logging.FieldEventType, "job_enqueued"),
	)
	return s.store.GetByID(ctx, id)
}

func (s *Service) enqueueTopic(ctx context.Context, raw string, opts Options) Entry {
	category, subject := ParseTopic(raw)
	if opts.Category != "" {
		category = opts.Category
	}
	entry := Entry{Topic: raw, Subject: subject, Category: category}

	existing, err := s.store.FindByTopic(ctx, subject)
	if err != nil {
		entry.Outcome = OutcomeFailed
		entry.Detail = err.Error()
		return entry
	}

	if opts.Resume {
		return s.resumeTopic(ctx, entry, existing)
	}

	if existing != nil {
		entry.JobID = existing.ID
		entry.Outcome = OutcomeSkipped
		switch existing.Status {
		case queue.StatusSuccess:
			entry.Detail = "already completed"
		case queue.StatusFailed:
			entry.Detail = "previously failed; re-run with --resume"
		default:
			entry.Detail = "already queued"
		}
		return entry
	}

	params := pipeline.ParamsFromConfig(s.cfg, subject)
	id := uuid.NewString()
	created, err := s.store.Insert(ctx, queue.NewJob{
		ID:       id,
		Topic:    subject,
		Category: category,
		MetaJSON: string(params.Meta()),
	})
	if err != nil {
		entry.Outcome = OutcomeFailed
		entry.Detail = err.Error()
		return entry
	}
	if !created {
		// A fresh uuid colliding means someone inserted it concurrently.
		entry.Outcome = OutcomeSkipped
		entry.Detail = "job id already present"
		return entry
	}
	entry.JobID = id
	entry.Outcome = OutcomeEnqueued
	return entry
}

// resumeTopic handles one topic in resume mode: only jobs that failed or
// were abandoned mid-processing go back to pending; everything else is left
// alone.
func (s *Service) resumeTopic(ctx context.Context, entry Entry, existing *queue.Job) Entry {
	if existing == nil {
		entry.Outcome = OutcomeSkipped
		entry.Detail = "not previously enqueued"
		return entry
	}
	entry.JobID = existing.ID

	switch existing.Status {
	case queue.StatusFailed, queue.StatusProcessing:
		if err := s.store.ResetForRetry(ctx, existing.ID); err != nil {
			entry.Outcome = OutcomeFailed
			entry.Detail = err.Error()
			return entry
		}
		entry.Outcome = OutcomeReset
		entry.Detail = "was " + string(existing.Status)
	case queue.StatusPending:
		entry.Outcome = OutcomeSkipped
		entry.Detail = "already queued"
	default:
		entry.Outcome = OutcomeSkipped
		entry.Detail = "already completed"
	}
	return entry
}
