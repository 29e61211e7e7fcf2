// Package indexer publishes a video's transcript: it transcribes the whole
// video, cuts the segments into fixed-length chunks, stores each chunk in
// the content store and records one ledger row per chunk.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/ledger"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/observability"
	"github.com/kbukum/transcriptcheck/pipeline"
	"github.com/kbukum/transcriptcheck/storage"
	"github.com/kbukum/transcriptcheck/transcription"
)

// Config controls chunking and publishing.
type Config struct {
	// ChunkInterval is the chunk length in seconds. It must match the
	// interval the ledger's overlap query assumes.
	ChunkInterval     float64 `mapstructure:"chunk_interval_s" validate:"gt=0"`
	IndexKey          string  `mapstructure:"index_key" validate:"required"`
	ContentLimit      int     `mapstructure:"content_limit" validate:"gte=0"`
	UploadConcurrency int     `mapstructure:"upload_concurrency" validate:"gte=1"`
	Language          string  `mapstructure:"language"`
	Model             string  `mapstructure:"model"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkInterval <= 0 {
		c.ChunkInterval = 30
	}
	if c.IndexKey == "" {
		c.IndexKey = ledger.DefaultIndexKey
	}
	if c.ContentLimit == 0 {
		c.ContentLimit = ledger.DefaultContentLimit
	}
	if c.UploadConcurrency <= 0 {
		c.UploadConcurrency = 4
	}
	if c.Language == "" {
		c.Language = "en"
	}
}

// AudioSource extracts audio; end <= start means the whole video.
type AudioSource interface {
	ExtractAudio(ctx context.Context, videoID string, start, end float64) (io.ReadCloser, error)
}

// Chunk is one interval of a transcript.
type Chunk struct {
	Start    float64
	Segments []transcription.Segment
}

type encodedChunk struct {
	Chunk
	data []byte
}

// Indexer publishes transcripts.
type Indexer struct {
	cfg    Config
	audio  AudioSource
	asr    transcription.Provider
	store  storage.ContentStore
	ledger ledger.Store
	log    *logger.Logger
}

// New creates an Indexer.
func New(cfg Config, audio AudioSource, asr transcription.Provider, store storage.ContentStore, led ledger.Store, log *logger.Logger) *Indexer {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Indexer{cfg: cfg, audio: audio, asr: asr, store: store, ledger: led, log: log.WithComponent("indexer")}
}

// Split cuts segments into [k*interval, (k+1)*interval) chunks by segment
// start. A segment starting exactly on a boundary belongs to the later
// chunk. Empty chunks are dropped.
func Split(segments []transcription.Segment, interval float64) []Chunk {
	if len(segments) == 0 || interval <= 0 {
		return nil
	}
	last := 0.0
	for _, s := range segments {
		if s.Start > last {
			last = s.Start
		}
	}
	var chunks []Chunk
	for k := 0; float64(k)*interval <= last; k++ {
		start := float64(k) * interval
		segs := transcription.ClipHalfOpen(segments, start, start+interval)
		if len(segs) == 0 {
			continue
		}
		chunks = append(chunks, Chunk{Start: start, Segments: segs})
	}
	return chunks
}

// IndexVideo transcribes videoID and publishes its chunks. It returns the
// ledger rows written, ordered by chunk start. Re-indexing a video replaces
// its rows and re-uses already stored chunk content.
func (ix *Indexer) IndexVideo(ctx context.Context, videoID string) ([]ledger.Row, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, apperrors.InvalidInput("video_id", "is required")
	}
	ctx, span := observability.StartSpan(ctx, "indexer.IndexVideo")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrVideoID, videoID)
	log := ix.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldVideoID, videoID))
	began := time.Now()

	rows, err := ix.index(ctx, videoID)
	if err != nil {
		observability.SetSpanError(ctx, err)
		log.Error("indexing failed", logger.MergeWithError(logger.Fields(), err))
		return nil, err
	}
	log.Info("video indexed", logger.MergeWithDuration(logger.Fields("chunks", len(rows)), time.Since(began)))
	return rows, nil
}

func (ix *Indexer) index(ctx context.Context, videoID string) ([]ledger.Row, error) {
	audio, err := ix.audio.ExtractAudio(ctx, videoID, 0, 0)
	if err != nil {
		return nil, err
	}
	defer audio.Close()

	tr, err := ix.asr.Transcribe(ctx, transcription.Request{
		Audio:    audio,
		FileName: videoID + ".mp3",
		Language: ix.cfg.Language,
		Model:    ix.cfg.Model,
	})
	if err != nil {
		return nil, err
	}

	chunks := Split(tr.Segments, ix.cfg.ChunkInterval)
	if len(chunks) == 0 {
		return nil, apperrors.EmptyInput("transcript").WithDetail(logger.FieldVideoID, videoID)
	}

	encoded := pipeline.Map(pipeline.FromSlice(chunks), func(_ context.Context, c Chunk) (encodedChunk, error) {
		data, err := json.Marshal(c.Segments)
		if err != nil {
			return encodedChunk{}, apperrors.Internal(fmt.Errorf("encode chunk %v: %w", c.Start, err))
		}
		return encodedChunk{Chunk: c, data: data}, nil
	})
	stored := pipeline.Parallel(encoded, ix.cfg.UploadConcurrency,
		func(ctx context.Context, c encodedChunk) (ledger.Row, error) {
			cid, err := ix.store.Put(ctx, c.data)
			if err != nil {
				return ledger.Row{}, err
			}
			return ledger.NewRow(ix.cfg.IndexKey, videoID, c.Start, cid, c.Segments, ix.cfg.ContentLimit), nil
		})
	rows, err := pipeline.Collect(ctx, pipeline.Tap(stored, func(_ context.Context, row ledger.Row) error {
		ix.log.Debug("chunk stored", logger.Fields(logger.FieldVideoID, videoID, logger.FieldChunkStart, row.ChunkStart, logger.FieldCID, row.CID))
		return nil
	}))
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ChunkStart < rows[j].ChunkStart })

	if err := ix.ledger.WriteIndices(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
