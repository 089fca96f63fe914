package main

import (
	"strings"
	"testing"
)

func TestRunCommandValidation(t *testing.T) {
	_, configPath := setupOfflineConfig(t)

	_, _, err := runCLI(t, []string{"run", "Topic", "--stop-at", "encode"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown stage") {
		t.Fatalf("expected stage error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"run", "Topic", "--source", "vimeo"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown source") {
		t.Fatalf("expected source error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"run", "   "}, configPath)
	if err == nil || !strings.Contains(err.Error(), "topic is required") {
		t.Fatalf("expected topic error, got %v", err)
	}

	_, _, err = runCLI(t, []string{"run"}, configPath)
	if err == nil {
		t.Fatal("expected missing argument error")
	}
}
