// Package openai implements transcription.Provider on the OpenAI audio
// transcription API (and API-compatible gateways).
package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/provider"
	"github.com/kbukum/transcriptcheck/transcription"
)

const (
	// ProviderName is the registered name for the OpenAI provider.
	ProviderName = "openai"

	defaultModel    = goopenai.Whisper1
	defaultLanguage = "en"
	defaultTimeout  = 2 * time.Minute
)

// Config holds configuration for the OpenAI transcription provider.
type Config struct {
	APIKey   string        `mapstructure:"api_key" json:"-"`
	Model    string        `mapstructure:"model" json:"model"`
	BaseURL  string        `mapstructure:"base_url" json:"base_url,omitempty"`
	Language string        `mapstructure:"language" json:"language,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// Provider transcribes audio with segment-level timestamps.
type Provider struct {
	cfg    Config
	client *goopenai.Client
}

// NewProvider creates a new OpenAI transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.Configuration("openai: api_key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{cfg: cfg, client: goopenai.NewClientWithConfig(clientCfg)}, nil
}

// Factory returns a provider.Factory that creates OpenAI providers from a
// generic config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(cfg map[string]any) (transcription.Provider, error) {
		oc := Config{}
		if v, ok := cfg["api_key"].(string); ok {
			oc.APIKey = v
		}
		if v, ok := cfg["model"].(string); ok {
			oc.Model = v
		}
		if v, ok := cfg["base_url"].(string); ok {
			oc.BaseURL = v
		}
		if v, ok := cfg["language"].(string); ok {
			oc.Language = v
		}
		if v, ok := cfg["timeout"].(time.Duration); ok {
			oc.Timeout = v
		}
		return NewProvider(oc)
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the provider has credentials. The API has no
// cheap liveness probe.
func (p *Provider) IsAvailable(_ context.Context) bool { return p.cfg.APIKey != "" }

// Transcribe sends the audio with verbose_json output and segment
// granularity, then shifts the segments by req.Offset.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Transcript, error) {
	if req.Audio == nil {
		return nil, apperrors.InvalidInput("audio", "is required")
	}

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}
	fileName := req.FileName
	if fileName == "" {
		fileName = "audio.mp3"
	}

	resp, err := p.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    model,
		Reader:   req.Audio,
		FilePath: fileName,
		Language: lang,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []goopenai.TranscriptionTimestampGranularity{
			goopenai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return nil, translateError(err)
	}

	segments := make([]transcription.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
	}

	return &transcription.Transcript{
		Duration: resp.Duration,
		Language: resp.Language,
		Text:     resp.Text,
		Segments: transcription.Shift(segments, req.Offset),
	}, nil
}

// translateError maps API failures onto AppErrors. Every failure is a
// collaborator error; only credentials and request shape are non-retryable.
func translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(ProviderName).WithCause(err)
	}

	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.RateLimited().WithCause(err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Configuration("openai: credentials rejected").WithCause(err)
	}
	appErr := apperrors.ExternalServiceError(ProviderName, err)
	if status != 0 {
		appErr.WithDetail("status", status)
	}
	return appErr
}

var _ transcription.Provider = (*Provider)(nil)
