package pipeline_test

import (
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/pipeline"
)

func TestParseMetaOverridesDefaults(t *testing.T) {
	raw := []byte(`{"subject":"Deep Sea","aspect":"landscape","paragraphs":3,"video_count":2,"stop_at":"terms"}`)

	params, ok := pipeline.ParseMeta(raw, "Fallback Topic")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if params.Subject != "Deep Sea" {
		t.Fatalf("subject = %q", params.Subject)
	}
	if params.Aspect != config.AspectLandscape || params.Paragraphs != 3 {
		t.Fatalf("overrides not applied: %+v", params)
	}
	if params.VideoCount != 2 || params.StopAt != pipeline.StopAtTerms {
		t.Fatalf("overrides not applied: %+v", params)
	}
	// Untouched fields keep their defaults.
	if params.TermsCount != 5 || params.ClipDuration != 5 {
		t.Fatalf("defaults lost: %+v", params)
	}
}

func TestParseMetaFallsBackOnMalformedJSON(t *testing.T) {
	params, ok := pipeline.ParseMeta([]byte("{not json"), "Ocean Facts")
	if ok {
		t.Fatal("malformed meta must report false")
	}
	defaults := pipeline.DefaultParams("Ocean Facts")
	if params != defaults {
		t.Fatalf("params = %+v, want defaults %+v", params, defaults)
	}
}

func TestParseMetaNormalizesOutOfRangeValues(t *testing.T) {
	raw := []byte(`{"subject":"X","paragraphs":0,"video_count":99,"aspect":"square","stop_at":"render","material_source":"youtube"}`)

	params, ok := pipeline.ParseMeta(raw, "X")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if params.Paragraphs != 1 || params.VideoCount != 5 {
		t.Fatalf("clamping failed: %+v", params)
	}
	if params.Aspect != config.AspectPortrait || params.MaterialSource != config.SourcePexels {
		t.Fatalf("unknown enums must fall back: %+v", params)
	}
	if params.StopAt != "" {
		t.Fatalf("unknown stop_at must clear, got %q", params.StopAt)
	}
}

func TestMetaRoundTrip(t *testing.T) {
	params := pipeline.DefaultParams("Ocean Facts")
	params.Voice = "en-US-JennyNeural"

	restored, ok := pipeline.ParseMeta(params.Meta(), "Ocean Facts")
	if !ok {
		t.Fatal("round trip parse failed")
	}
	if restored != params {
		t.Fatalf("restored = %+v, want %+v", restored, params)
	}
}

func TestAspectResolution(t *testing.T) {
	if w, h := pipeline.AspectResolution(config.AspectPortrait); w != 1080 || h != 1920 {
		t.Fatalf("portrait = %dx%d", w, h)
	}
	if w, h := pipeline.AspectResolution(config.AspectLandscape); w != 1920 || h != 1080 {
		t.Fatalf("landscape = %dx%d", w, h)
	}
	if w, h := pipeline.AspectResolution("unknown"); w != 1080 || h != 1920 {
		t.Fatalf("unknown aspect = %dx%d, want portrait", w, h)
	}
}

func TestTaskProgressIsMonotonic(t *testing.T) {
	task := pipeline.NewTask("t", pipeline.DefaultParams("X"))
	task.SetProgress(40)
	task.SetProgress(10)
	if task.Progress != 40 {
		t.Fatalf("progress = %d, want 40", task.Progress)
	}
	task.SetProgress(250)
	if task.Progress != 100 {
		t.Fatalf("progress = %d, want cap at 100", task.Progress)
	}
}
