package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/process"
)

// Metadata is the subset of yt-dlp's info JSON the audit needs.
// Duration is zero when the platform does not report one.
type Metadata struct {
	VideoID  string  `json:"video_id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Uploader string  `json:"uploader,omitempty"`
}

// infoJSON mirrors the fields read from --dump-single-json.
type infoJSON struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Duration *float64 `json:"duration"`
	Uploader string   `json:"uploader"`
}

// YtDlp reads metadata and extracts audio windows with the yt-dlp binary.
type YtDlp struct {
	cfg      Config
	runner   process.Runner
	metadata *process.SubprocessProvider[string, *Metadata]
	log      *logger.Logger
}

// New creates a yt-dlp client. runner executes the binary; pass a
// *process.Adapter in production.
func New(cfg Config, runner process.Runner, log *logger.Logger) *YtDlp {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	y := &YtDlp{cfg: cfg, runner: runner, log: log.WithComponent("platform")}
	y.metadata = process.NewSubprocessProvider("yt-dlp", runner, y.metadataCommand, parseMetadata).
		WithAvailabilityCheck(y.available)
	return y
}

// Name identifies the collaborator in logs and errors.
func (y *YtDlp) Name() string { return "yt-dlp" }

// IsAvailable runs `yt-dlp --version`.
func (y *YtDlp) IsAvailable(ctx context.Context) bool {
	return y.metadata.IsAvailable(ctx)
}

func (y *YtDlp) available(ctx context.Context) bool {
	_, err := y.runner.Run(ctx, process.Command{Binary: y.cfg.YtDlpPath, Args: []string{"--version"}})
	return err == nil
}

// Metadata fetches video metadata without downloading media.
func (y *YtDlp) Metadata(ctx context.Context, videoID string) (*Metadata, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, apperrors.InvalidInput("video_id", "is required")
	}
	ctx, cancel := context.WithTimeout(ctx, y.cfg.Timeout)
	defer cancel()

	md, err := y.metadata.Execute(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if md.VideoID == "" {
		md.VideoID = videoID
	}
	y.log.Debug("metadata fetched", logger.Fields(logger.FieldVideoID, videoID, "duration", md.Duration))
	return md, nil
}

func (y *YtDlp) metadataCommand(videoID string) process.Command {
	return process.Command{
		Binary: y.cfg.YtDlpPath,
		Args:   []string{"--dump-single-json", "--skip-download", "--no-playlist", "--no-warnings", WatchURL + videoID},
	}
}

func parseMetadata(res *process.Result) (*Metadata, error) {
	var info infoJSON
	if err := json.Unmarshal(res.Stdout, &info); err != nil {
		return nil, apperrors.ExternalServiceError("yt-dlp", fmt.Errorf("decode metadata: %w", err))
	}
	md := &Metadata{VideoID: info.ID, Title: info.Title, Uploader: info.Uploader}
	if info.Duration != nil {
		md.Duration = *info.Duration
	}
	return md, nil
}

// ExtractAudio downloads the audio of [start, end] seconds. An end <= start
// extracts the whole video. The returned reader removes the temporary
// download directory on Close.
func (y *YtDlp) ExtractAudio(ctx context.Context, videoID string, start, end float64) (io.ReadCloser, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, apperrors.InvalidInput("video_id", "is required")
	}
	if start < 0 {
		return nil, apperrors.InvalidInput("start", "must not be negative")
	}

	dir, err := os.MkdirTemp(y.cfg.WorkDir, "ytdlp-*")
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create work dir: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, y.cfg.Timeout)
	defer cancel()

	began := time.Now()
	if _, err := y.runner.Run(ctx, y.audioCommand(videoID, dir, start, end)); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	path := filepath.Join(dir, "audio."+y.cfg.AudioFormat)
	f, err := os.Open(path)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, apperrors.ExternalServiceError("yt-dlp", fmt.Errorf("no audio produced: %w", err))
	}

	fields := logger.WindowFields(videoID, start, end)
	y.log.Debug("audio extracted", logger.MergeWithDuration(fields, time.Since(began)))
	return &tempAudio{File: f, dir: dir}, nil
}

func (y *YtDlp) audioCommand(videoID, dir string, start, end float64) process.Command {
	args := []string{
		"-x",
		"--audio-format", y.cfg.AudioFormat,
		"--no-playlist",
		"--no-progress",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
	}
	if end > start {
		args = append(args, "--download-sections", Section(start, end))
	}
	args = append(args, WatchURL+videoID)
	return process.Command{Binary: y.cfg.YtDlpPath, Args: args}
}

// Section renders a --download-sections time range in seconds.
func Section(start, end float64) string {
	return "*" + strconv.FormatFloat(start, 'f', -1, 64) + "-" + strconv.FormatFloat(end, 'f', -1, 64)
}

type tempAudio struct {
	*os.File
	dir string
}

func (t *tempAudio) Close() error {
	err := t.File.Close()
	if rmErr := os.RemoveAll(t.dir); err == nil {
		err = rmErr
	}
	return err
}
