package audit

import (
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/scoring"
	"github.com/kbukum/transcriptcheck/validation"
)

const (
	DefaultScoreThreshold   = 0.5
	DefaultTimeInterval     = 30.0
	DefaultFallbackDuration = 60.0
	DefaultFetchConcurrency = 3
	DefaultTimeout          = 2 * time.Minute
)

// Config drives a Validator.
type Config struct {
	// ScoreThreshold is the pass mark; a window is valid when its score is strictly above it.
	ScoreThreshold    float64                   `mapstructure:"score_threshold" validate:"gte=0,lte=1"`
	TranscriptWeights scoring.TranscriptWeights `mapstructure:"transcript_weights" validate:"weights"`
	TimestampWeights  scoring.TimestampWeights  `mapstructure:"timestamp_weights" validate:"dive,gte=0,lte=1"`
	// TimeInterval is the sample window length in seconds.
	TimeInterval float64 `mapstructure:"time_interval_s" validate:"gt=0"`
	// FallbackDuration is used when the platform reports no duration.
	FallbackDuration float64       `mapstructure:"fallback_duration_s" validate:"gt=0"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency" validate:"gte=1,lte=64"`
	// Timeout bounds one audit run. Zero means DefaultTimeout; a negative
	// value runs without a deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold:    DefaultScoreThreshold,
		TranscriptWeights: scoring.DefaultTranscriptWeights,
		TimestampWeights:  scoring.DefaultTimestampWeights,
		TimeInterval:      DefaultTimeInterval,
		FallbackDuration:  DefaultFallbackDuration,
		FetchConcurrency:  DefaultFetchConcurrency,
		Timeout:           DefaultTimeout,
	}
}

// ApplyDefaults fills unset sizing fields. The threshold and the weights are
// taken as given because zero is a meaningful value for them.
func (c *Config) ApplyDefaults() {
	if c.TimeInterval == 0 {
		c.TimeInterval = DefaultTimeInterval
	}
	if c.FallbackDuration == 0 {
		c.FallbackDuration = DefaultFallbackDuration
	}
	if c.FetchConcurrency == 0 {
		c.FetchConcurrency = DefaultFetchConcurrency
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate reports any violation as a CONFIGURATION_ERROR carrying the
// per-field messages.
func (c *Config) Validate() error {
	err := validation.Validate(c)
	if err == nil {
		return nil
	}
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return apperrors.Configuration("audit: invalid configuration").WithCause(err)
	}
	return apperrors.Configuration("audit: "+appErr.Message).WithDetails(appErr.Details).WithCause(err)
}
