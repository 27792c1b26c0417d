package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	errs "viewsync/internal/errors"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port: %s", cfg.Server.Port)
	}
	if cfg.History.Backend != BackendBolt {
		t.Errorf("backend: %s", cfg.History.Backend)
	}
	if cfg.Sync.ThrottleInterval != 16*time.Millisecond {
		t.Errorf("throttle: %s", cfg.Sync.ThrottleInterval)
	}
	if cfg.Sync.SampleRate != 0.1 {
		t.Errorf("sample rate: %v", cfg.Sync.SampleRate)
	}
	if cfg.Sync.Tolerances.Zoom != 0.01 {
		t.Errorf("zoom tolerance: %v", cfg.Sync.Tolerances.Zoom)
	}
	if cfg.Runner.SettleDelay != 100*time.Millisecond {
		t.Errorf("settle delay: %s", cfg.Runner.SettleDelay)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SYNC_THROTTLE_MS", "32")
	t.Setenv("SYNC_SAMPLE_RATE", "1.0")
	t.Setenv("RESULTS_MAX_RUNS", "10")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port: %s", cfg.Server.Port)
	}
	if cfg.Sync.ThrottleInterval != 32*time.Millisecond {
		t.Errorf("throttle: %s", cfg.Sync.ThrottleInterval)
	}
	if cfg.Sync.SampleRate != 1.0 {
		t.Errorf("sample rate: %v", cfg.Sync.SampleRate)
	}
	if cfg.Results.MaxRuns != 10 {
		t.Errorf("max runs: %d", cfg.Results.MaxRuns)
	}
}

func TestFromEnv_UnparseableFallsBack(t *testing.T) {
	t.Setenv("SYNC_THROTTLE_MS", "not-a-number")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sync.ThrottleInterval != 16*time.Millisecond {
		t.Errorf("unparseable value must keep the default, got %s", cfg.Sync.ThrottleInterval)
	}
}

func TestFromEnv_InvalidBackend(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "redis")
	if _, err := FromEnv(); errs.GetCode(err) != errs.CodeConfigInvalid {
		t.Fatalf("want CONFIG_INVALID, got %v", err)
	}
}

func TestFromEnv_PostgresNeedsURL(t *testing.T) {
	t.Setenv("HISTORY_BACKEND", "postgres")
	if _, err := FromEnv(); errs.GetCode(err) != errs.CodeConfigInvalid {
		t.Fatalf("want CONFIG_INVALID, got %v", err)
	}

	t.Setenv("HISTORY_POSTGRES_URL", "postgres://localhost/viewsync?sslmode=disable")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.History.Backend != BackendPostgres {
		t.Errorf("backend: %s", cfg.History.Backend)
	}
}

func TestFromEnv_SampleRateBounds(t *testing.T) {
	t.Setenv("SYNC_SAMPLE_RATE", "1.5")
	if _, err := FromEnv(); errs.GetCode(err) != errs.CodeConfigInvalid {
		t.Fatalf("want CONFIG_INVALID, got %v", err)
	}
}

func TestTolerancesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tolerances.yaml")
	if err := os.WriteFile(path, []byte("longitude: 0.0001\nzoom: 0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TOLERANCES_FILE", path)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Sync.Tolerances.Longitude != 0.0001 {
		t.Errorf("longitude: %v", cfg.Sync.Tolerances.Longitude)
	}
	if cfg.Sync.Tolerances.Zoom != 0.5 {
		t.Errorf("zoom: %v", cfg.Sync.Tolerances.Zoom)
	}
	// Latitude was not in the file; the default survives.
	if cfg.Sync.Tolerances.Latitude != 1e-6 {
		t.Errorf("latitude default lost: %v", cfg.Sync.Tolerances.Latitude)
	}
}

func TestTolerancesFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tolerances.yaml")
	if err := os.WriteFile(path, []byte("longitude: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TOLERANCES_FILE", path)

	if _, err := FromEnv(); errs.GetCode(err) != errs.CodeConfigInvalid {
		t.Fatalf("want CONFIG_INVALID, got %v", err)
	}

	t.Setenv("TOLERANCES_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := FromEnv(); errs.GetCode(err) != errs.CodeConfigInvalid {
		t.Fatalf("missing file: want CONFIG_INVALID, got %v", err)
	}
}
