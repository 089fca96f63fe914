package batch_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelforge/internal/batch"
)

func sampleReport() *batch.Report {
	return &batch.Report{
		File:    "/data/topics.json",
		Started: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Elapsed: 1400 * time.Millisecond,
		Entries: []batch.Entry{
			{Topic: "Science_01_Ocean_Facts", Subject: "Ocean Facts", Category: "Science", JobID: "0123456789abcdef", Outcome: batch.OutcomeEnqueued},
			{Topic: "Science_02_Volcanoes", Subject: "Volcanoes", Category: "Science", Outcome: batch.OutcomeSkipped, Detail: "already completed"},
			{Topic: "History_01_Fall_of_Rome", Subject: "Fall of Rome", Category: "History", JobID: "fedcba9876543210", Outcome: batch.OutcomeReset, Detail: "was failed"},
			{Topic: "History_02_Silk_Road", Subject: "Silk Road", Category: "History", Outcome: batch.OutcomeFailed, Detail: "insert job: disk I/O error"},
		},
	}
}

func TestReportCounts(t *testing.T) {
	report := sampleReport()
	if got := report.Count(batch.OutcomeEnqueued); got != 1 {
		t.Fatalf("enqueued count = %d", got)
	}
	if got := report.Count(batch.OutcomeSkipped); got != 1 {
		t.Fatalf("skipped count = %d", got)
	}
	if got := report.Count(batch.OutcomeReset); got != 1 {
		t.Fatalf("reset count = %d", got)
	}
	if got := report.Count(batch.OutcomeFailed); got != 1 {
		t.Fatalf("failed count = %d", got)
	}
}

func TestReportRollupSortsCategories(t *testing.T) {
	rollups := sampleReport().Rollup()
	if len(rollups) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(rollups))
	}
	if rollups[0].Category != "History" || rollups[1].Category != "Science" {
		t.Fatalf("expected sorted categories, got %+v", rollups)
	}
	if rollups[0].Reset != 1 || rollups[0].Failed != 1 {
		t.Fatalf("unexpected History rollup: %+v", rollups[0])
	}
	if rollups[1].Enqueued != 1 || rollups[1].Skipped != 1 {
		t.Fatalf("unexpected Science rollup: %+v", rollups[1])
	}
}

func TestReportWriteMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch_report.md")
	if err := sampleReport().WriteMarkdown(path); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(raw)

	for _, want := range []string{
		"# Batch Report: topics.json",
		"**Generated:** 2026-03-14 09:30:00",
		"| Total Topics | 4 |",
		"| Enqueued | 1 |",
		"| Elapsed | 1.4s |",
		"## Categories",
		"| History | 0 | 1 | 0 | 1 |",
		"| Science | 1 | 0 | 1 | 0 |",
		"| 1 | Science_01_Ocean_Facts | Science | enqueued | 01234567 |  |",
		"| 4 | History_02_Silk_Road | History | failed | - | insert job: disk I/O error |",
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("report missing %q in:\n%s", want, content)
		}
	}
}
