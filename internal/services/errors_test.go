package services_test

import (
	"errors"
	"strings"
	"testing"

	"reelforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "assembly", "mux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"assembly", "mux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "script", "generate", "empty response", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", services.Wrap(services.ErrTransient, "terms", "generate", "rate limited", nil), true},
		{"timeout", services.Wrap(services.ErrTimeout, "materials", "download", "deadline", nil), true},
		{"validation", services.Wrap(services.ErrValidation, "script", "parse", "empty subject", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "", "load", "missing key", nil), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		if got := services.IsTransient(tc.err); got != tc.want {
			t.Fatalf("%s: IsTransient = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDetailsStripsMarker(t *testing.T) {
	err := services.Wrap(services.ErrProvider, "script", "generate", "empty completion", nil)
	details := services.Details(err)
	if strings.Contains(details, services.ErrProvider.Error()) {
		t.Fatalf("expected marker stripped, got %q", details)
	}
	if !strings.Contains(details, "empty completion") {
		t.Fatalf("expected message retained, got %q", details)
	}
	if services.Details(nil) != "" {
		t.Fatal("expected empty details for nil error")
	}
}
