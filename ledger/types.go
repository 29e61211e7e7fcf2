package ledger

import (
	"context"
	"strconv"
	"strings"

	"github.com/kbukum/transcriptcheck/transcription"
)

const (
	// DefaultTable is the ledger table name.
	DefaultTable = "chunk_index"
	// DefaultIndexKey is the row type written by the indexer.
	DefaultIndexKey = "youtube"
	// DefaultContentLimit caps the stored text preview, in characters.
	DefaultContentLimit = 1000
)

// Row is one published chunk.
type Row struct {
	Type       string  `json:"type"`
	VideoID    string  `json:"video_id"`
	ChunkStart float64 `json:"chunk_start"`
	CID        string  `json:"cid"`
	ContentKey string  `json:"content_key"`
	Content    string  `json:"content"`
}

// Index is the knowledge-base projection of a Row.
type Index struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Index returns the listing entry for r.
func (r Row) Index() Index {
	return Index{ID: r.CID + "-" + r.ContentKey, Content: r.Content}
}

// Store is the ledger contract the indexer and validator depend on.
type Store interface {
	// WriteIndices persists rows in one batch. Rows sharing a content key replace earlier ones.
	WriteIndices(ctx context.Context, rows []Row) error

	// LoadIndexWithVideo returns the rows of videoID whose chunk window
	// overlaps the window starting at chunkStart, ordered by chunk start.
	LoadIndexWithVideo(ctx context.Context, videoID string, chunkStart float64) ([]Row, error)

	// LoadIndex lists every row with non-empty content.
	LoadIndex(ctx context.Context) ([]Index, error)
}

// ContentKey identifies a chunk across re-indexing runs.
func ContentKey(indexKey, videoID string, chunkStart float64) string {
	return strings.Join([]string{indexKey, videoID, strconv.FormatFloat(chunkStart, 'f', -1, 64)}, "_")
}

// Content joins segment texts with spaces and keeps the first limit characters.
// A non-positive limit keeps everything.
func Content(segments []transcription.Segment, limit int) string {
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	joined := strings.Join(texts, " ")
	if limit <= 0 {
		return joined
	}
	runes := []rune(joined)
	if len(runes) <= limit {
		return joined
	}
	return string(runes[:limit])
}

// NewRow builds the ledger row for a published chunk.
func NewRow(indexKey, videoID string, chunkStart float64, cid string, segments []transcription.Segment, limit int) Row {
	return Row{
		Type:       indexKey,
		VideoID:    videoID,
		ChunkStart: chunkStart,
		CID:        cid,
		ContentKey: ContentKey(indexKey, videoID, chunkStart),
		Content:    Content(segments, limit),
	}
}

// overlapBounds returns the exclusive lower and inclusive upper chunk-start
// bounds for chunks overlapping the window [start, start+interval].
func overlapBounds(start, interval float64) (lower, upper float64) {
	return start - interval, start + interval
}
