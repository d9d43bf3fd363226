package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "jobweave.yaml")
	if err := os.WriteFile(path, []byte("dashboard:\n  address: \":4001\"\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.Dashboard.Address != ":4001" {
		t.Errorf("Dashboard.Address = %q, want :4001", cfg.Dashboard.Address)
	}
	if cfg.DefaultTimezone != "UTC" {
		t.Errorf("DefaultTimezone = %q, want UTC (default)", cfg.DefaultTimezone)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("JOBWEAVE_DASHBOARD_ADDR", ":9999")

	dir := t.TempDir()
	path := filepath.Join(dir, "jobweave.yaml")
	content := "dashboard:\n  address: \"${JOBWEAVE_DASHBOARD_ADDR}\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.Dashboard.Address != ":9999" {
		t.Errorf("Dashboard.Address = %q, want :9999", cfg.Dashboard.Address)
	}
}

func TestLoadRequiredVarMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobweave.yaml")
	content := "dashboard:\n  address: \"${MISSING_VAR:?must be set}\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load with unset required var: expected error, got none")
	}
}

func TestLoadDefaultValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobweave.yaml")
	content := "dashboard:\n  address: \"${MISSING_VAR:-:5050}\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: unexpected error: %v", err)
	}
	if cfg.Dashboard.Address != ":5050" {
		t.Errorf("Dashboard.Address = %q, want :5050", cfg.Dashboard.Address)
	}
}

func TestShutdownTimeoutDurationFallback(t *testing.T) {
	t.Parallel()

	cfg := &WorkerConfig{ShutdownTimeout: "not-a-duration"}
	if got := cfg.ShutdownTimeoutDuration(); got.String() != "30s" {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 30s fallback", got)
	}
}
