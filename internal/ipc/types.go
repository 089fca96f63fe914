package ipc

import (
	"time"

	"reelforge/internal/batch"
	"reelforge/internal/preflight"
	"reelforge/internal/queue"
)

// timeFormat is used for RFC3339 timestamps in IPC payloads.
const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a queue entry in a transport-friendly format.
type Job struct {
	ID              string  `json:"id"`
	Topic           string  `json:"topic"`
	Category        string  `json:"category"`
	Status          string  `json:"status"`
	Attempts        int     `json:"attempts"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	OutputPath      string  `json:"output_path,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Rating          *int    `json:"rating,omitempty"`
	PromptHash      string  `json:"prompt_hash,omitempty"`
	MetaJSON        string  `json:"meta_json,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
	UpdatedAt       string  `json:"updated_at,omitempty"`
}

// FromQueueJob converts a store row into its transport form.
func FromQueueJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}
	return Job{
		ID:              job.ID,
		Topic:           job.Topic,
		Category:        job.Category,
		Status:          string(job.Status),
		Attempts:        job.Attempts,
		ErrorMessage:    job.ErrorMessage,
		OutputPath:      job.OutputPath,
		DurationSeconds: job.DurationSeconds,
		Rating:          job.Rating,
		PromptHash:      job.PromptHash,
		MetaJSON:        job.MetaJSON,
		CreatedAt:       formatTime(job.CreatedAt),
		UpdatedAt:       formatTime(job.UpdatedAt),
	}
}

// FromQueueJobs converts a job slice, skipping nil entries.
func FromQueueJobs(jobs []*queue.Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		out = append(out, FromQueueJob(job))
	}
	return out
}

// PreflightCheck mirrors a preflight result for status payloads.
type PreflightCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// FromPreflightResults converts preflight results into transport form.
func FromPreflightResults(results []preflight.Result) []PreflightCheck {
	out := make([]PreflightCheck, 0, len(results))
	for _, result := range results {
		out = append(out, PreflightCheck{
			Name:   result.Name,
			Passed: result.Passed,
			Detail: result.Detail,
		})
	}
	return out
}

// QueueStats carries per-status job counts.
type QueueStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
}

// FromHealthSummary converts store counts into transport form.
func FromHealthSummary(summary queue.HealthSummary) QueueStats {
	return QueueStats{
		Total:      summary.Total,
		Pending:    summary.Pending,
		Processing: summary.Processing,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
	}
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and queue status information.
type StatusResponse struct {
	Running       bool             `json:"running"`
	PID           int              `json:"pid"`
	StartedAt     string           `json:"started_at,omitempty"`
	UptimeSeconds float64          `json:"uptime_seconds,omitempty"`
	Workers       int              `json:"workers"`
	LockPath      string           `json:"lock_path,omitempty"`
	QueueDBPath   string           `json:"queue_db_path,omitempty"`
	Queue         QueueStats       `json:"queue"`
	Checks        []PreflightCheck `json:"checks,omitempty"`
}

// StopRequest stops the daemon and terminates the process.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// QueueListRequest filters queue listing by status and category.
type QueueListRequest struct {
	Statuses []string `json:"statuses,omitempty"`
	Category string   `json:"category,omitempty"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []Job `json:"jobs"`
}

// QueueStatsRequest fetches aggregate queue counts.
type QueueStatsRequest struct{}

// QueueStatsResponse reports aggregate queue counts.
type QueueStatsResponse struct {
	Stats QueueStats `json:"stats"`
}

// QueueHealthRequest fetches detailed database diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue database health information.
type QueueHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present,omitempty"`
	MissingColumns   []string `json:"missing_columns,omitempty"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalJobs        int      `json:"total_jobs"`
	Error            string   `json:"error,omitempty"`
}

// FromDatabaseHealth converts queue diagnostics into their transport form.
func FromDatabaseHealth(health queue.DatabaseHealth) QueueHealthResponse {
	return QueueHealthResponse{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		SchemaVersion:    health.SchemaVersion,
		TableExists:      health.TableExists,
		ColumnsPresent:   append([]string(nil), health.ColumnsPresent...),
		MissingColumns:   append([]string(nil), health.MissingColumns...),
		IntegrityCheck:   health.IntegrityCheck,
		TotalJobs:        health.TotalJobs,
		Error:            health.Error,
	}
}

// EnqueueRequest inserts a single job.
type EnqueueRequest struct {
	Topic      string `json:"topic"`
	Category   string `json:"category,omitempty"`
	PromptHash string `json:"prompt_hash,omitempty"`
	MetaJSON   string `json:"meta_json,omitempty"`
}

// EnqueueResponse returns the created job.
type EnqueueResponse struct {
	Job Job `json:"job"`
}

// BatchEntry records the decision for one topic of a batch run.
type BatchEntry struct {
	Topic    string `json:"topic"`
	Subject  string `json:"subject"`
	Category string `json:"category"`
	JobID    string `json:"job_id,omitempty"`
	Outcome  string `json:"outcome"`
	Detail   string `json:"detail,omitempty"`
}

// BatchReport aggregates one batch enqueue run.
type BatchReport struct {
	File           string       `json:"file"`
	Resume         bool         `json:"resume"`
	StartedAt      string       `json:"started_at,omitempty"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	Entries        []BatchEntry `json:"entries"`
}

// FromBatchReport converts a batch report into its transport form.
func FromBatchReport(report *batch.Report) BatchReport {
	if report == nil {
		return BatchReport{}
	}
	entries := make([]BatchEntry, 0, len(report.Entries))
	for _, entry := range report.Entries {
		entries = append(entries, BatchEntry{
			Topic:    entry.Topic,
			Subject:  entry.Subject,
			Category: entry.Category,
			JobID:    entry.JobID,
			Outcome:  string(entry.Outcome),
			Detail:   entry.Detail,
		})
	}
	return BatchReport{
		File:           report.File,
		Resume:         report.Resume,
		StartedAt:      formatTime(report.Started),
		ElapsedSeconds: report.Elapsed.Seconds(),
		Entries:        entries,
	}
}

// ToReport converts the transport form back into a batch report so the CLI
// can reuse the report rendering helpers.
func (r BatchReport) ToReport() *batch.Report {
	report := &batch.Report{
		File:    r.File,
		Resume:  r.Resume,
		Elapsed: time.Duration(r.ElapsedSeconds * float64(time.Second)),
	}
	if r.StartedAt != "" {
		if started, err := time.Parse(timeFormat, r.StartedAt); err == nil {
			report.Started = started
		}
	}
	for _, entry := range r.Entries {
		report.Entries = append(report.Entries, batch.Entry{
			Topic:    entry.Topic,
			Subject:  entry.Subject,
			Category: entry.Category,
			JobID:    entry.JobID,
			Outcome:  batch.Outcome(entry.Outcome),
			Detail:   entry.Detail,
		})
	}
	return report
}

// EnqueueBatchRequest enqueues a topics file.
type EnqueueBatchRequest struct {
	Path     string `json:"path"`
	Category string `json:"category,omitempty"`
	Resume   bool   `json:"resume,omitempty"`
}

// EnqueueBatchResponse returns the per-topic report.
type EnqueueBatchResponse struct {
	Report BatchReport `json:"report"`
}

// QueueRetryRequest retries failed and stuck jobs, optionally scoped to a
// category.
type QueueRetryRequest struct {
	Category string `json:"category,omitempty"`
}

// QueueRetryResponse reports number of jobs reset.
type QueueRetryResponse struct {
	Reset int `json:"reset"`
}

// QueueResetRequest returns one job to pending.
type QueueResetRequest struct {
	ID string `json:"id"`
}

// QueueResetResponse indicates the reset happened.
type QueueResetResponse struct {
	Reset bool `json:"reset"`
}

// FailStuckRequest fails jobs stuck in processing past the timeout. Zero
// fails every processing job.
type FailStuckRequest struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

// FailStuckResponse reports number of jobs failed.
type FailStuckResponse struct {
	Failed int64 `json:"failed"`
}

// RateRequest records an operator rating for a job.
type RateRequest struct {
	ID     string `json:"id"`
	Rating int    `json:"rating"`
}

// RateResponse indicates the rating was recorded.
type RateResponse struct {
	Rated bool `json:"rated"`
}

// QueueDeleteRequest removes a single job.
type QueueDeleteRequest struct {
	ID string `json:"id"`
}

// QueueDeleteResponse reports whether a job was removed.
type QueueDeleteResponse struct {
	Removed bool `json:"removed"`
}

// QueueClearRequest removes finished jobs. An empty status clears the whole
// queue.
type QueueClearRequest struct {
	Status string `json:"status,omitempty"`
}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// CacheClearExpiredRequest evicts expired response cache entries.
type CacheClearExpiredRequest struct{}

// CacheClearExpiredResponse reports number of evicted entries.
type CacheClearExpiredResponse struct {
	Removed int64 `json:"removed"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent bool `json:"sent"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}
