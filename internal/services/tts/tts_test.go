package tts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelforge/internal/logging"
	"reelforge/internal/services"
	"reelforge/internal/services/tts"
	"reelforge/internal/testsupport"
)

func newTestService(t *testing.T) *tts.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return tts.NewService(cfg, logging.NewNop())
}

func TestSynthesizeRunsEdgeTTS(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()

	var captured []string
	svc.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		captured = append([]string{name}, args...)
		testsupport.WriteFile(t, filepath.Join(dir, "audio.mp3"), 2048)
		testsupport.WriteText(t, filepath.Join(dir, "audio.vtt"), "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhello\n")
		return nil
	})
	svc.WithDurationProber(func(_ context.Context, _, _ string) (float64, error) {
		return 12.3, nil
	})

	result, err := svc.Synthesize(context.Background(), "The ocean is deep.", "english", "1.1", dir)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if result.AudioPath != filepath.Join(dir, "audio.mp3") {
		t.Fatalf("unexpected audio path %q", result.AudioPath)
	}
	if result.TimingPath != filepath.Join(dir, "audio.vtt") {
		t.Fatalf("unexpected timing path %q", result.TimingPath)
	}
	if result.Duration != 13 {
		t.Fatalf("expected duration rounded up to 13, got %v", result.Duration)
	}

	joined := strings.Join(captured, " ")
	if !strings.Contains(joined, "edge-tts") {
		t.Fatalf("expected edge-tts invocation, got %q", joined)
	}
	if !strings.Contains(joined, "--voice en-US-ChristopherNeural") {
		t.Fatalf("expected resolved voice in args, got %q", joined)
	}
	if !strings.Contains(joined, "--rate=+10%") {
		t.Fatalf("expected normalized rate in args, got %q", joined)
	}
}

func TestSynthesizeReusesExistingAudio(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "audio.mp3"), 4096)

	svc.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		t.Fatal("edge-tts should not run when narration exists")
		return nil
	})
	svc.WithDurationProber(func(_ context.Context, _, _ string) (float64, error) {
		return 8, nil
	})

	result, err := svc.Synthesize(context.Background(), "text", "", "", dir)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if result.Duration != 8 {
		t.Fatalf("unexpected duration %v", result.Duration)
	}
	if result.TimingPath != "" {
		t.Fatalf("expected no timing path without a vtt file, got %q", result.TimingPath)
	}
}

func TestSynthesizeFailsWithoutOutput(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()

	svc.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		return nil
	})

	_, err := svc.Synthesize(context.Background(), "text", "", "", dir)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestSynthesizeSurfacesCommandFailure(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()

	svc.WithCommandRunner(func(_ context.Context, _ string, _ ...string) error {
		return errors.New("exit status 1")
	})

	_, err := svc.Synthesize(context.Background(), "text", "", "", dir)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "audio.mp3")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no audio file after failure")
	}
}

func TestSynthesizeRequiresText(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Synthesize(context.Background(), "  ", "", "", t.TempDir()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNormalizeVoice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "en-US-ChristopherNeural"},
		{"en-US-JennyNeural", "en-US-JennyNeural"},
		{"english", "en-US-ChristopherNeural"},
		{"es", "es-ES-AlvaroNeural"},
		{"Spanish", "es-ES-AlvaroNeural"},
		{"klingon", "en-US-ChristopherNeural"},
	}
	for _, tc := range cases {
		if got := tts.NormalizeVoice(tc.in); got != tc.want {
			t.Errorf("NormalizeVoice(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "+0%"},
		{"+10%", "+10%"},
		{"-5%", "-5%"},
		{"10%", "+10%"},
		{"1.2", "+20%"},
		{"0.9", "-10%"},
		{"garbage", "+0%"},
	}
	for _, tc := range cases {
		if got := tts.NormalizeRate(tc.in); got != tc.want {
			t.Errorf("NormalizeRate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
