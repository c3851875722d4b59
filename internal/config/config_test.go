package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
law:
  base_url: https://sgg.gouv.bj/doc
  max_number: 400
  floor_year: 2000
  max_items_per_run: 250
http:
  timeout_seconds: 30
  rps: 1.5
  burst: 2
  user_agent: lawharvest-test
rate_limit:
  max_retries: 5
  base_delay_ms: 500
  max_delay_ms: 10000
  jitter_ms: 100
  stats_window_seconds: 120
scan:
  workers: 8
  commit_chunk: 25
  topic: discoveries
storage:
  backend: gcs
  gcs:
    bucket: law-artifacts
    prefix: prod
db:
  dsn: postgres://localhost/lawharvest
telegram:
  enabled: true
  token: bot-token
  chat_id: "42"
scheduler:
  enabled: true
  current_year_interval: 30m
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Law.MaxNumber != 400 || cfg.Law.FloorYear != 2000 {
		t.Fatalf("expected law overrides to apply: %+v", cfg.Law)
	}
	if cfg.HTTP.RPS != 1.5 || cfg.HTTP.UserAgent != "lawharvest-test" {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if cfg.Storage.Backend != "gcs" || cfg.Storage.GCS.Bucket != "law-artifacts" {
		t.Fatalf("expected gcs storage config: %+v", cfg.Storage)
	}
	if !cfg.Telegram.Enabled || cfg.Telegram.ChatID != "42" {
		t.Fatalf("expected telegram config: %+v", cfg.Telegram)
	}
	if cfg.Scheduler.CurrentYearInterval != 30*time.Minute {
		t.Fatalf("expected 30m interval, got %v", cfg.Scheduler.CurrentYearInterval)
	}
	if cfg.Scheduler.PreviousYearsInterval != 6*time.Hour {
		t.Fatalf("expected default 6h interval, got %v", cfg.Scheduler.PreviousYearsInterval)
	}

	rl := cfg.RateLimit.Controller()
	if rl.BaseDelay != 500*time.Millisecond || rl.MaxRetries != 5 {
		t.Fatalf("expected rate limit conversion: %+v", rl)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Law.BaseURL == "" {
		t.Fatal("expected default base url")
	}
	if len(cfg.Law.DocumentTypes) != 1 || cfg.Law.DocumentTypes[0] != "loi" {
		t.Fatalf("expected scans to default to lois only, got %v", cfg.Law.DocumentTypes)
	}
	if cfg.Storage.Backend != "local" || cfg.Storage.Local.BaseDir != "data" {
		t.Fatalf("expected local storage defaults: %+v", cfg.Storage)
	}
	if cfg.OCR.Language != "fra" {
		t.Fatalf("expected default ocr language, got %q", cfg.OCR.Language)
	}
	rl := cfg.RateLimit.Controller()
	if rl.BaseDelay != 2*time.Second || rl.JitterBound != time.Second {
		t.Fatalf("expected 2s base delay with 1s jitter bound, got %+v", rl)
	}
	if rl.MaxDelay != 30*time.Second || rl.StatsWindow != 5*time.Minute {
		t.Fatalf("expected 30s delay cap over a 5m window, got %+v", rl)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{}
	base.Server.Port = 8080
	base.Law.BaseURL = "https://sgg.gouv.bj/doc"
	base.Law.MaxNumber = 300
	base.Law.FloorYear = 1990
	base.Law.DocumentTypes = []string{"loi"}
	base.HTTP.TimeoutSeconds = 10
	base.Storage.Backend = "memory"

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{
			name:   "invalid port",
			mutate: func(c *Config) { c.Server.Port = 0 },
			want:   "server.port",
		},
		{
			name:   "missing base url",
			mutate: func(c *Config) { c.Law.BaseURL = "" },
			want:   "law.base_url",
		},
		{
			name:   "invalid max number",
			mutate: func(c *Config) { c.Law.MaxNumber = 0 },
			want:   "law.max_number",
		},
		{
			name:   "empty document types",
			mutate: func(c *Config) { c.Law.DocumentTypes = nil },
			want:   "law.document_types",
		},
		{
			name:   "unknown document type",
			mutate: func(c *Config) { c.Law.DocumentTypes = []string{"arrete"} },
			want:   "law.document_types",
		},
		{
			name:   "invalid timeout",
			mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 },
			want:   "http.timeout_seconds",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Storage.Backend = "s3" },
			want:   "storage.backend",
		},
		{
			name: "gcs missing bucket",
			mutate: func(c *Config) {
				c.Storage.Backend = "gcs"
				c.Storage.GCS.Bucket = ""
			},
			want: "storage.gcs.bucket",
		},
		{
			name:   "telegram missing token",
			mutate: func(c *Config) { c.Telegram.Enabled = true },
			want:   "telegram.token",
		},
		{
			name: "pubsub missing topic",
			mutate: func(c *Config) {
				c.PubSub.Enabled = true
				c.PubSub.ProjectID = "proj"
			},
			want: "pubsub.project_id",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
