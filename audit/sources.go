package audit

import (
	"context"
	"io"
	"path/filepath"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/ledger"
	"github.com/kbukum/transcriptcheck/platform"
	"github.com/kbukum/transcriptcheck/transcription"
)

// MetadataSource supplies the video duration used for sampling.
type MetadataSource interface {
	Metadata(ctx context.Context, videoID string) (*platform.Metadata, error)
}

// AudioSource extracts the audio of a time range of a video.
type AudioSource interface {
	ExtractAudio(ctx context.Context, videoID string, start, end float64) (io.ReadCloser, error)
}

// ReferenceSource regenerates the transcript of a window. Segment times
// must be absolute video time.
type ReferenceSource interface {
	Reference(ctx context.Context, videoID string, w Window) (*transcription.Transcript, error)
}

// ChunkIndex finds the chunks published for a window.
type ChunkIndex interface {
	LoadIndexWithVideo(ctx context.Context, videoID string, chunkStart float64) ([]ledger.Row, error)
}

// ASRReference produces reference transcripts by extracting the window's
// audio and transcribing it.
type ASRReference struct {
	audio    AudioSource
	asr      transcription.Provider
	language string
	model    string
}

// NewASRReference adapts an AudioSource and an ASR provider to ReferenceSource.
func NewASRReference(audio AudioSource, asr transcription.Provider, language, model string) *ASRReference {
	return &ASRReference{audio: audio, asr: asr, language: language, model: model}
}

func (r *ASRReference) Reference(ctx context.Context, videoID string, w Window) (*transcription.Transcript, error) {
	audio, err := r.audio.ExtractAudio(ctx, videoID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	defer audio.Close()

	name := "audio.mp3"
	if f, ok := audio.(interface{ Name() string }); ok {
		name = filepath.Base(f.Name())
	}
	tr, err := r.asr.Transcribe(ctx, transcription.Request{
		Audio:    audio,
		FileName: name,
		Language: r.language,
		Model:    r.model,
		Offset:   w.Start,
	})
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return nil, apperrors.ExternalServiceError(r.asr.Name(), nil).WithDetail("reason", "empty transcript")
	}
	return tr, nil
}
