package platform

import (
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
)

const (
	DefaultYtDlpPath   = "yt-dlp"
	DefaultAudioFormat = "mp3"
	DefaultTimeout     = 10 * time.Minute
	// WatchURL is the page yt-dlp resolves a video id against.
	WatchURL = "https://www.youtube.com/watch?v="
)

// Config configures the yt-dlp client.
type Config struct {
	YtDlpPath string `yaml:"ytdlp_path" mapstructure:"ytdlp_path"`
	// WorkDir holds temporary download directories. Empty means os.TempDir.
	WorkDir     string        `yaml:"work_dir" mapstructure:"work_dir"`
	AudioFormat string        `yaml:"audio_format" mapstructure:"audio_format"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.YtDlpPath == "" {
		c.YtDlpPath = DefaultYtDlpPath
	}
	if c.AudioFormat == "" {
		c.AudioFormat = DefaultAudioFormat
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	switch c.AudioFormat {
	case "mp3", "m4a", "wav", "opus", "flac":
	default:
		return apperrors.Configuration("platform.audio_format must be one of mp3, m4a, wav, opus, flac")
	}
	return nil
}
