package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/transcriptcheck/audit"
	apperrors "github.com/kbukum/transcriptcheck/errors"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    command
		wantErr string
	}{
		{"serve", []string{"serve"}, command{mode: modeServe}, ""},
		{"worker with config", []string{"worker", "-config", "x.yml"}, command{mode: modeWorker, configFile: "x.yml"}, ""},
		{"validate", []string{"validate", "-video", " mars "}, command{mode: modeValidate, videoID: "mars"}, ""},
		{"index", []string{"index", "-video=venus"}, command{mode: modeIndex, videoID: "venus"}, ""},
		{"version", []string{"version"}, command{mode: modeVersion}, ""},
		{"no args", nil, command{}, "usage"},
		{"unknown", []string{"crawl"}, command{}, `unknown command "crawl"`},
		{"validate without video", []string{"validate"}, command{}, "validate requires -video"},
		{"serve rejects video", []string{"serve", "-video", "x"}, command{}, "flag provided but not defined"},
		{"extra args", []string{"index", "-video", "x", "y"}, command{}, "unexpected arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args, io.Discard)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("parseArgs() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseArgs() = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := parseArgs([]string{"help"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("help = %v, want flag.ErrHelp", err)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VALIDATOR_SCORE_THRESHOLD", "0.7")
	path := writeConfig(t, `
name: transcriptcheck
validator:
  transcript_weights: [0.2, 0.8]
video:
  time_interval_s: 20
indexer:
  chunk_interval_s: 20
kafka:
  enabled: true
  brokers: ["k1:9092"]
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Validator.ScoreThreshold != 0.7 {
		t.Errorf("threshold = %v, want env override 0.7", cfg.Validator.ScoreThreshold)
	}
	if cfg.Validator.TranscriptWeights[0] != 0.2 || cfg.Validator.TimestampWeights[1] != 0.7 {
		t.Errorf("weights = %v %v", cfg.Validator.TranscriptWeights, cfg.Validator.TimestampWeights)
	}
	if cfg.Validator.TimeInterval != 20 {
		t.Errorf("time interval = %v, want video override 20", cfg.Validator.TimeInterval)
	}
	if cfg.ASR.Provider != "openai" || cfg.ASR.OpenAI.APIKey != "sk-test" || cfg.ASR.Language != "en" {
		t.Errorf("asr = %+v", cfg.ASR)
	}
	if cfg.Kafka.VerdictTopic == "" || cfg.Kafka.RequestTopic == "" {
		t.Errorf("kafka topics not defaulted: %+v", cfg.Kafka)
	}
	if cfg.Version == "" {
		t.Error("version not filled from build info")
	}
	if cfg.Ledger.Driver != "sqlite" || cfg.Storage.Provider != "local" || cfg.Server.Port != 8080 {
		t.Errorf("section defaults missing: ledger=%s storage=%s port=%d", cfg.Ledger.Driver, cfg.Storage.Provider, cfg.Server.Port)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"ok", func(*Config) {}, ""},
		{"weights", func(c *Config) { c.Validator.TranscriptWeights = [2]float64{0.2, 0.2} }, "audit"},
		{"threshold", func(c *Config) { c.Validator.ScoreThreshold = 1.5 }, "audit"},
		{"interval mismatch", func(c *Config) { c.Indexer.ChunkInterval = 45 }, "chunk_interval_s"},
		{"negative video interval", func(c *Config) { c.Video.TimeInterval = -30 }, "video.time_interval_s"},
		{"asr provider", func(c *Config) { c.ASR.Provider = "vosk" }, "asr"},
		{"missing openai key", func(c *Config) { c.ASR.OpenAI.APIKey = "" }, "api_key"},
		{"whisper needs no key", func(c *Config) { c.ASR.Provider = "whisper"; c.ASR.OpenAI.APIKey = "" }, ""},
		{"ledger driver", func(c *Config) { c.Ledger.Driver = "mysql" }, "ledger"},
		{"kafka same topics", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = []string{"k:9092"}
			c.Kafka.RequestTopic = c.Kafka.VerdictTopic
		}, "kafka"},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			cfg := DefaultConfig()
			cfg.ASR.OpenAI.APIKey = "sk-test"
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("Validate() = %v", err)
				}
				return
			}
			if !apperrors.HasCode(err, apperrors.ErrCodeConfiguration) {
				t.Fatalf("Validate() = %v, want CONFIGURATION_ERROR", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestASRFactoryConfig(t *testing.T) {
	c := ASRConfig{Provider: "whisper", Language: "de"}
	c.Whisper.URL = "http://sidecar:9000"
	got := c.factoryConfig()
	if got["url"] != "http://sidecar:9000" || got["language"] != "de" {
		t.Errorf("whisper config = %v", got)
	}

	c = ASRConfig{Provider: "openai", Language: "en"}
	c.OpenAI.APIKey = "sk"
	got = c.factoryConfig()
	if got["api_key"] != "sk" || got["language"] != "en" {
		t.Errorf("openai config = %v", got)
	}
}

func TestVerdictExitCode(t *testing.T) {
	tests := map[audit.Status]int{
		audit.StatusValid:        exitOK,
		audit.StatusInvalid:      exitInvalid,
		audit.StatusInconclusive: exitInconclusive,
	}
	for status, want := range tests {
		if got := verdictExitCode(status); got != want {
			t.Errorf("verdictExitCode(%s) = %d, want %d", status, got, want)
		}
	}
}

func TestRunUsageAndConfigErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	var stderr bytes.Buffer
	if code := run(context.Background(), nil, io.Discard, &stderr); code != exitUsage {
		t.Errorf("run() = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(stderr.String(), "usage") {
		t.Errorf("stderr = %q", stderr.String())
	}

	var stdout bytes.Buffer
	if code := run(context.Background(), []string{"version"}, &stdout, io.Discard); code != exitOK {
		t.Errorf("version = %d", code)
	}
	if !strings.HasPrefix(stdout.String(), "transcriptcheck dev") {
		t.Errorf("version output = %q", stdout.String())
	}

	stderr.Reset()
	path := writeConfig(t, "name: transcriptcheck\n")
	code := run(context.Background(), []string{"validate", "-video", "mars", "-config", path}, io.Discard, &stderr)
	if code != exitError {
		t.Errorf("run() without api key = %d, want %d", code, exitError)
	}
	if !strings.Contains(stderr.String(), "api_key") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
