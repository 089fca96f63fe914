package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// StuckJobMessage is the error message set when jobs abandoned in
// processing are failed by FailStuck.
const StuckJobMessage = "worker lost: job stuck in processing"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusSuccess,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Job represents a durable queue entry persisted in SQLite. Each job wraps
// one generation task; retries reuse the job id with a fresh execution.
type Job struct {
	ID              string
	Topic           string
	Category        string
	Status          Status
	Attempts        int
	ErrorMessage    string
	OutputPath      string
	DurationSeconds float64
	Rating          *int
	PromptHash      string
	MetaJSON        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewJob carries the fields supplied at enqueue time.
type NewJob struct {
	ID         string
	Topic      string
	Category   string
	MetaJSON   string
	PromptHash string
}

// StatusUpdate carries optional fields for a partial status transition.
// Nil fields are left untouched.
type StatusUpdate struct {
	ErrorMessage *string
	OutputPath   *string
	Attempts     *int
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Succeeded  int
	Failed     int
}

// DurationStats aggregates recorded runtimes of succeeded jobs.
type DurationStats struct {
	Completed      int
	TotalSeconds   float64
	AverageSeconds float64
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status will not change without operator action.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}
