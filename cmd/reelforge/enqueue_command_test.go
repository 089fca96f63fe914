package main

import (
	"context"
	"strings"
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/pipeline"
)

func TestEnqueueCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out, _, err := runCLI(t, []string{
		"enqueue", "Northern lights",
		"--category", "Science",
		"--paragraphs", "4",
		"--aspect", "landscape",
		"--source", "pixabay",
		"--stop-at", "audio",
	}, env.configPath)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, `Queued "Northern lights" as job `)
	requireContains(t, out, "(category Science)")

	job, err := env.store.FindByTopic(ctx, "Northern lights")
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if job == nil {
		t.Fatal("expected job in queue")
	}
	if job.Category != "Science" {
		t.Fatalf("expected category Science, got %q", job.Category)
	}

	params, ok := pipeline.ParseMeta([]byte(job.MetaJSON), job.Topic)
	if !ok {
		t.Fatalf("expected parseable meta, got %q", job.MetaJSON)
	}
	if params.Paragraphs != 4 {
		t.Fatalf("expected 4 paragraphs, got %d", params.Paragraphs)
	}
	if params.Aspect != config.AspectLandscape {
		t.Fatalf("expected landscape aspect, got %q", params.Aspect)
	}
	if params.MaterialSource != config.SourcePixabay {
		t.Fatalf("expected pixabay source, got %q", params.MaterialSource)
	}
	if params.StopAt != pipeline.StopAtAudio {
		t.Fatalf("expected stop at audio, got %q", params.StopAt)
	}
}

func TestEnqueueDefaultCategory(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	out, _, err := runCLI(t, []string{"enqueue", "Wind turbines"}, env.configPath)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, "(category General)")

	job, err := env.store.FindByTopic(ctx, "Wind turbines")
	if err != nil {
		t.Fatalf("find job: %v", err)
	}
	if job == nil || job.Category != "General" {
		t.Fatalf("expected General category job, got %+v", job)
	}
}

func TestEnqueueSameTopicTwice(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, err := runCLI(t, []string{"enqueue", "Harvest moon"}, env.configPath); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	jobs, err := env.store.List(ctx)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs for repeated topic, got %d", len(jobs))
	}
}

func TestEnqueueFlagValidation(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"enqueue", "Topic", "--aspect", "diagonal"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown aspect") {
		t.Fatalf("expected aspect error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"enqueue", "Topic", "--stop-at", "render"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Fatalf("expected stage error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"enqueue", "Topic", "--count", "9"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "between 1 and 5") {
		t.Fatalf("expected count error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"enqueue", "   "}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "topic is required") {
		t.Fatalf("expected topic error, got %v", err)
	}
}
