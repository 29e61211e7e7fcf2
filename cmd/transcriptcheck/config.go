package main

import (
	"fmt"
	"os"

	"github.com/kbukum/transcriptcheck/audit"
	"github.com/kbukum/transcriptcheck/config"
	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/indexer"
	"github.com/kbukum/transcriptcheck/kafka"
	"github.com/kbukum/transcriptcheck/ledger"
	"github.com/kbukum/transcriptcheck/observability"
	"github.com/kbukum/transcriptcheck/platform"
	"github.com/kbukum/transcriptcheck/redis"
	"github.com/kbukum/transcriptcheck/server"
	"github.com/kbukum/transcriptcheck/storage"
	"github.com/kbukum/transcriptcheck/transcription/openai"
	"github.com/kbukum/transcriptcheck/transcription/whisper"
	"github.com/kbukum/transcriptcheck/validation"
)

const serviceName = "transcriptcheck"

// Config is the full process configuration, loaded from config.yml, .env and
// the environment.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Validator audit.Config         `yaml:"validator" mapstructure:"validator"`
	Video     VideoConfig          `yaml:"video" mapstructure:"video"`
	Indexer   indexer.Config       `yaml:"indexer" mapstructure:"indexer"`
	ASR       ASRConfig            `yaml:"asr" mapstructure:"asr"`
	Storage   storage.Config       `yaml:"storage" mapstructure:"storage"`
	Ledger    ledger.Config        `yaml:"ledger" mapstructure:"ledger"`
	Redis     redis.Config         `yaml:"redis" mapstructure:"redis"`
	Kafka     kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Tracing   observability.Config `yaml:"tracing" mapstructure:"tracing"`
	Platform  platform.Config      `yaml:"platform" mapstructure:"platform"`
}

// VideoConfig holds per-video sampling settings.
type VideoConfig struct {
	// TimeInterval overrides validator.time_interval_s when set.
	TimeInterval float64 `yaml:"time_interval_s" mapstructure:"time_interval_s"`
}

// ASRConfig selects and configures the speech-to-text backend.
type ASRConfig struct {
	Provider string         `yaml:"provider" mapstructure:"provider" validate:"oneof=openai whisper"`
	Language string         `yaml:"language" mapstructure:"language"`
	OpenAI   openai.Config  `yaml:"openai" mapstructure:"openai"`
	Whisper  whisper.Config `yaml:"whisper" mapstructure:"whisper"`
}

// factoryConfig renders the selected backend's settings for the provider registry.
func (c ASRConfig) factoryConfig() map[string]any {
	switch c.Provider {
	case openai.ProviderName:
		return map[string]any{
			"api_key":  c.OpenAI.APIKey,
			"model":    c.OpenAI.Model,
			"base_url": c.OpenAI.BaseURL,
			"language": c.Language,
			"timeout":  c.OpenAI.Timeout,
		}
	default:
		return map[string]any{
			"url":      c.Whisper.URL,
			"model":    c.Whisper.Model,
			"language": c.Language,
			"timeout":  c.Whisper.Timeout,
		}
	}
}

// DefaultConfig returns the configuration before any file or environment
// override is applied. The scoring threshold and weights are seeded here
// because zero is a legal value for them.
func DefaultConfig() Config {
	return Config{
		ServiceConfig: config.ServiceConfig{Name: serviceName},
		Validator:     audit.DefaultConfig(),
	}
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Video.TimeInterval > 0 {
		c.Validator.TimeInterval = c.Video.TimeInterval
	}
	c.Validator.ApplyDefaults()
	c.Indexer.ApplyDefaults()
	if c.ASR.Provider == "" {
		c.ASR.Provider = openai.ProviderName
	}
	if c.ASR.OpenAI.APIKey == "" {
		c.ASR.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.ASR.Language == "" {
		c.ASR.Language = c.Indexer.Language
	}
	c.Storage.ApplyDefaults()
	c.Ledger.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Tracing.ApplyDefaults()
	c.Platform.ApplyDefaults()
}

// Validate checks every section and returns the first failure.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return apperrors.Configuration(err.Error()).WithCause(err)
	}
	if c.Video.TimeInterval != 0 {
		if appErr := validation.New().Positive("video.time_interval_s", c.Video.TimeInterval).Validate(); appErr != nil {
			return apperrors.Configuration(appErr.Message).WithCause(appErr)
		}
	}
	if err := c.Validator.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.Indexer); err != nil {
		return apperrors.Configuration("indexer: " + err.Error()).WithCause(err)
	}
	if c.Indexer.ChunkInterval != c.Validator.TimeInterval {
		return apperrors.Configuration(fmt.Sprintf(
			"indexer.chunk_interval_s (%v) must equal validator.time_interval_s (%v)",
			c.Indexer.ChunkInterval, c.Validator.TimeInterval))
	}
	if err := validation.Validate(&c.ASR); err != nil {
		return apperrors.Configuration("asr: " + err.Error()).WithCause(err)
	}
	if c.ASR.Provider == openai.ProviderName && c.ASR.OpenAI.APIKey == "" {
		return apperrors.Configuration("asr.openai.api_key is required (set OPENAI_API_KEY)")
	}

	for _, v := range []interface{ Validate() error }{
		&c.Storage, &c.Ledger, &c.Redis, &c.Kafka, &c.Server, &c.Platform,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if err := c.Tracing.Validate(); err != nil {
		return apperrors.Configuration(err.Error()).WithCause(err)
	}
	return nil
}
