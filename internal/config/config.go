// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sgg-bj/lawharvest/internal/fetchclient"
	"github.com/sgg-bj/lawharvest/internal/lawdoc"
	"github.com/sgg-bj/lawharvest/internal/ocr"
	"github.com/sgg-bj/lawharvest/internal/ratelimit"
	"github.com/sgg-bj/lawharvest/internal/storage/gcs"
	"github.com/sgg-bj/lawharvest/internal/storage/local"
	"github.com/sgg-bj/lawharvest/internal/store/postgres"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig       `mapstructure:"server"`
	Law       LawConfig          `mapstructure:"law"`
	HTTP      fetchclient.Config `mapstructure:"http"`
	RateLimit RateLimitConfig    `mapstructure:"rate_limit"`
	Scan      ScanConfig         `mapstructure:"scan"`
	Pipeline  PipelineConfig     `mapstructure:"pipeline"`
	Storage   StorageConfig      `mapstructure:"storage"`
	DB        postgres.Config    `mapstructure:"db"`
	PubSub    PubSubConfig       `mapstructure:"pubsub"`
	Telegram  TelegramConfig     `mapstructure:"telegram"`
	OCR       ocr.Config         `mapstructure:"ocr"`
	Extract   ExtractConfig      `mapstructure:"extract"`
	Scheduler SchedulerConfig    `mapstructure:"scheduler"`
	Logging   LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LawConfig describes the upstream document space.
type LawConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// DocumentTypes lists the types the scheduled scans cover. Scanning
	// decrees multiplies the probe volume, so they are opt-in.
	DocumentTypes []string `mapstructure:"document_types"`
	// MaxNumber is the highest document number probed per year.
	MaxNumber int `mapstructure:"max_number"`
	// FloorYear is the oldest year the backward scan reaches.
	FloorYear int `mapstructure:"floor_year"`
	// MaxItemsPerRun caps how many candidates one backward run emits.
	MaxItemsPerRun int `mapstructure:"max_items_per_run"`
}

// RateLimitConfig tunes the adaptive retry controller.
type RateLimitConfig struct {
	MaxRetries         int `mapstructure:"max_retries"`
	BaseDelayMs        int `mapstructure:"base_delay_ms"`
	MaxDelayMs         int `mapstructure:"max_delay_ms"`
	JitterMs           int `mapstructure:"jitter_ms"`
	StatsWindowSeconds int `mapstructure:"stats_window_seconds"`
}

// Controller converts the millisecond knobs into a ratelimit.Config.
func (c RateLimitConfig) Controller() ratelimit.Config {
	return ratelimit.Config{
		MaxRetries:  c.MaxRetries,
		BaseDelay:   time.Duration(c.BaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.MaxDelayMs) * time.Millisecond,
		JitterBound: time.Duration(c.JitterMs) * time.Millisecond,
		StatsWindow: time.Duration(c.StatsWindowSeconds) * time.Second,
	}
}

// ScanConfig governs probe fan-out and commit batching.
type ScanConfig struct {
	Workers     int    `mapstructure:"workers"`
	CommitChunk int    `mapstructure:"commit_chunk"`
	Topic       string `mapstructure:"topic"`
}

// PipelineConfig tunes per-document processing.
type PipelineConfig struct {
	MinTextLength int `mapstructure:"min_text_length"`
}

// StorageConfig selects and configures the artifact backend.
type StorageConfig struct {
	// Backend is one of "local", "gcs" or "memory".
	Backend string       `mapstructure:"backend"`
	Local   local.Config `mapstructure:"local"`
	GCS     gcs.Config   `mapstructure:"gcs"`
}

// PubSubConfig holds metadata for discovery event publishing.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TelegramConfig configures operator digest notifications.
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  string `mapstructure:"chat_id"`
}

// ExtractConfig points at optional pattern and dictionary overrides.
type ExtractConfig struct {
	PatternsPath   string `mapstructure:"patterns_path"`
	DictionaryPath string `mapstructure:"dictionary_path"`
}

// SchedulerConfig drives the periodic scan jobs.
type SchedulerConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	CurrentYearInterval   time.Duration `mapstructure:"current_year_interval"`
	PreviousYearsInterval time.Duration `mapstructure:"previous_years_interval"`
	ConsolidateInterval   time.Duration `mapstructure:"consolidate_interval"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LAWHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("law.base_url", "https://sgg.gouv.bj/doc")
	v.SetDefault("law.document_types", []string{"loi"})
	v.SetDefault("law.max_number", 300)
	v.SetDefault("law.floor_year", 1990)
	v.SetDefault("law.max_items_per_run", 500)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.rps", 2.0)
	v.SetDefault("http.burst", 1)
	v.SetDefault("http.user_agent", "lawharvest/1.0")
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.base_delay_ms", 2000)
	v.SetDefault("rate_limit.max_delay_ms", 30000)
	v.SetDefault("rate_limit.jitter_ms", 1000)
	v.SetDefault("rate_limit.stats_window_seconds", 300)
	v.SetDefault("scan.workers", 4)
	v.SetDefault("scan.commit_chunk", 50)
	v.SetDefault("scan.topic", "law-discoveries")
	v.SetDefault("pipeline.min_text_length", 100)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.base_dir", "data")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", time.Hour)
	v.SetDefault("ocr.text_tool", "pdftotext")
	v.SetDefault("ocr.ocr_tool", "ocrmypdf")
	v.SetDefault("ocr.language", "fra")
	v.SetDefault("ocr.quality_threshold", 0.5)
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.current_year_interval", time.Hour)
	v.SetDefault("scheduler.previous_years_interval", 6*time.Hour)
	v.SetDefault("scheduler.consolidate_interval", 24*time.Hour)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Law.BaseURL == "" {
		return fmt.Errorf("law.base_url must be set")
	}
	if c.Law.MaxNumber <= 0 {
		return fmt.Errorf("law.max_number must be > 0")
	}
	if c.Law.FloorYear <= 0 {
		return fmt.Errorf("law.floor_year must be > 0")
	}
	if len(c.Law.DocumentTypes) == 0 {
		return fmt.Errorf("law.document_types must list at least one type")
	}
	for _, t := range c.Law.DocumentTypes {
		if !lawdoc.ValidType(lawdoc.DocumentType(t)) {
			return fmt.Errorf("law.document_types: unknown type %q", t)
		}
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir must be set")
		}
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket must be set")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.backend must be one of local, gcs, memory")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.token and telegram.chat_id must be set when telegram is enabled")
	}
	return nil
}
