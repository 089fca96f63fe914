package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigNewCommand(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")

	out, _, err := runCLI(t, []string{"config", "new", "--path", target}, "")
	if err != nil {
		t.Fatalf("config new: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "new", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "new", "--path", target, "--overwrite"}, "")
	if err != nil {
		t.Fatalf("config new --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigNewDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, _, err := runCLI(t, []string{"config", "new"}, "")
	if err != nil {
		t.Fatalf("config new: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	expected := filepath.Join(home, ".config", "reelforge", "config.toml")
	if _, err := os.Stat(expected); err != nil {
		t.Fatalf("expected config file at %s: %v", expected, err)
	}
}

func TestConfigShowCommand(t *testing.T) {
	_, configPath := setupOfflineConfig(t)

	out, _, err := runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Config path: "+configPath)
	requireContains(t, out, "Workers:")
	requireContains(t, out, "LLM provider: gemini")
	requireContains(t, out, "Material source: pexels")
	requireContains(t, out, "Notifications: disabled")
}

func TestConfigShowDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GEMINI_API_KEY", "test")

	absent := filepath.Join(t.TempDir(), "absent.toml")
	out, _, err := runCLI(t, []string{"config", "show"}, absent)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Config file did not exist; defaults were used")
}
