package batch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelforge/internal/fileutil"
)

// Outcome classifies what an enqueue run did with one topic.
type Outcome string

const (
	// OutcomeEnqueued means a fresh job was inserted.
	OutcomeEnqueued Outcome = "enqueued"
	// OutcomeReset means an existing failed or stuck job was returned to
	// pending for another run.
	OutcomeReset Outcome = "reset"
	// OutcomeSkipped means the topic needed no action.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the store rejected the operation.
	OutcomeFailed Outcome = "failed"
)

// Entry records the decision for a single topic line.
type Entry struct {
	Topic    string
	Subject  string
	Category string
	JobID    string
	Outcome  Outcome
	Detail   string
}

// Report aggregates one batch enqueue run.
type Report struct {
	File    string
	Resume  bool
	Started time.Time
	Elapsed time.Duration
	Entries []Entry
}

// Count returns how many entries ended with the given outcome.
func (r *Report) Count(outcome Outcome) int {
	total := 0
	for _, entry := range r.Entries {
		if entry.Outcome == outcome {
			total++
		}
	}
	return total
}

// CategoryRollup aggregates outcomes for one category.
type CategoryRollup struct {
	Category string
	Enqueued int
	Reset    int
	Skipped  int
	Failed   int
}

// Rollup returns per-category outcome counts sorted by category name.
func (r *Report) Rollup() []CategoryRollup {
	byCategory := make(map[string]*CategoryRollup)
	for _, entry := range r.Entries {
		rollup := byCategory[entry.Category]
		if rollup == nil {
			rollup = &CategoryRollup{Category: entry.Category}
			byCategory[entry.Category] = rollup
		}
		switch entry.Outcome {
		case OutcomeEnqueued:
			rollup.Enqueued++
		case OutcomeReset:
			rollup.Reset++
		case OutcomeSkipped:
			rollup.Skipped++
		case OutcomeFailed:
			rollup.Failed++
		}
	}

	rollups := make([]CategoryRollup, 0, len(byCategory))
	for _, rollup := range byCategory {
		rollups = append(rollups, *rollup)
	}
	sort.Slice(rollups, func(i, j int) bool { return rollups[i].Category < rollups[j].Category })
	return rollups
}

// WriteMarkdown renders the report as a markdown file next to the usual
// batch outputs, mirroring the summary/details layout operators expect.
func (r *Report) WriteMarkdown(path string) error {
	mode := "enqueue"
	if r.Resume {
		mode = "resume"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Batch Report: %s\n\n", filepath.Base(r.File))
	fmt.Fprintf(&b, "**Generated:** %s  \n", r.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Mode:** %s\n\n", mode)

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Total Topics | %d |\n", len(r.Entries))
	fmt.Fprintf(&b, "| Enqueued | %d |\n", r.Count(OutcomeEnqueued))
	fmt.Fprintf(&b, "| Reset | %d |\n", r.Count(OutcomeReset))
	fmt.Fprintf(&b, "| Skipped | %d |\n", r.Count(OutcomeSkipped))
	fmt.Fprintf(&b, "| Failed | %d |\n", r.Count(OutcomeFailed))
	fmt.Fprintf(&b, "| Elapsed | %.1fs |\n\n", r.Elapsed.Seconds())

	rollups := r.Rollup()
	if len(rollups) > 1 {
		b.WriteString("## Categories\n\n")
		b.WriteString("| Category | Enqueued | Reset | Skipped | Failed |\n")
		b.WriteString("|----------|----------|-------|---------|--------|\n")
		for _, rollup := range rollups {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n",
				rollup.Category, rollup.Enqueued, rollup.Reset, rollup.Skipped, rollup.Failed)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Details\n\n")
	b.WriteString("| # | Topic | Category | Outcome | Job | Detail |\n")
	b.WriteString("|---|-------|----------|---------|-----|--------|\n")
	for i, entry := range r.Entries {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			i+1,
			truncate(entry.Topic, 50),
			entry.Category,
			entry.Outcome,
			shortID(entry.JobID),
			entry.Detail,
		)
	}

	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write batch report: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "-"
	}
	return id
}
