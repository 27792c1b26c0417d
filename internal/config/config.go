// Package config assembles runtime configuration from environment variables,
// with an optional YAML overlay for drift tolerances. Call godotenv.Load
// before FromEnv so a local .env file participates.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"viewsync/domain/view"
	errs "viewsync/internal/errors"
)

// History backends.
const (
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

// Config holds every tunable the daemon reads at startup.
type Config struct {
	Server  ServerConfig
	History HistoryConfig
	Sync    SyncConfig
	Runner  RunnerConfig
	Results ResultsConfig
}

type ServerConfig struct {
	Port string
}

type HistoryConfig struct {
	Backend     string
	BoltPath    string
	PostgresURL string
}

type SyncConfig struct {
	ThrottleInterval time.Duration
	SampleRate       float64
	ProbeDelay       time.Duration
	SizeTolerancePx  int
	Tolerances       view.Tolerances
}

type RunnerConfig struct {
	SettleDelay time.Duration
}

type ResultsConfig struct {
	MaxRuns int
}

// FromEnv builds a Config from the environment, falling back to defaults for
// anything unset. Unparseable values are ignored in favor of the default,
// matching how the rest of the env surface behaves; only an invalid backend
// or an unreadable tolerances file is an error.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Port: envStr("PORT", "8080")},
		History: HistoryConfig{
			Backend:     envStr("HISTORY_BACKEND", BackendBolt),
			BoltPath:    envStr("HISTORY_BOLT_PATH", "viewsync-history.db"),
			PostgresURL: os.Getenv("HISTORY_POSTGRES_URL"),
		},
		Sync: SyncConfig{
			ThrottleInterval: envMillis("SYNC_THROTTLE_MS", 16*time.Millisecond),
			SampleRate:       envFloat("SYNC_SAMPLE_RATE", 0.1),
			ProbeDelay:       envMillis("SYNC_PROBE_DELAY_MS", 50*time.Millisecond),
			SizeTolerancePx:  envInt("SYNC_SIZE_TOLERANCE_PX", 2),
			Tolerances:       view.DefaultTolerances(),
		},
		Runner:  RunnerConfig{SettleDelay: envMillis("RUNNER_SETTLE_MS", 100*time.Millisecond)},
		Results: ResultsConfig{MaxRuns: envInt("RESULTS_MAX_RUNS", 0)},
	}

	switch cfg.History.Backend {
	case BackendBolt, BackendPostgres:
	default:
		return nil, errs.ConfigInvalid("HISTORY_BACKEND must be bolt or postgres, got " + cfg.History.Backend)
	}
	if cfg.History.Backend == BackendPostgres && cfg.History.PostgresURL == "" {
		return nil, errs.ConfigInvalid("HISTORY_POSTGRES_URL is required for the postgres backend")
	}
	if cfg.Sync.SampleRate < 0 || cfg.Sync.SampleRate > 1 {
		return nil, errs.ConfigInvalid("SYNC_SAMPLE_RATE must be in [0, 1]")
	}

	if path := os.Getenv("TOLERANCES_FILE"); path != "" {
		tol, err := loadTolerances(path)
		if err != nil {
			return nil, err
		}
		cfg.Sync.Tolerances = tol
	}
	return cfg, nil
}

// loadTolerances reads a YAML tolerances file. Fields left out of the file
// keep their defaults.
func loadTolerances(path string) (view.Tolerances, error) {
	tol := view.DefaultTolerances()
	raw, err := os.ReadFile(path)
	if err != nil {
		return tol, errs.ConfigInvalid("tolerances file unreadable: " + err.Error())
	}
	if err := yaml.Unmarshal(raw, &tol); err != nil {
		return tol, errs.ConfigInvalid("tolerances file invalid: " + err.Error())
	}
	if tol.Longitude <= 0 || tol.Latitude <= 0 || tol.Zoom <= 0 {
		return tol, errs.ConfigInvalid("tolerances must be positive")
	}
	return tol, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}
