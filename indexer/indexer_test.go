package indexer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/kbukum/transcriptcheck/audit"
	apperrors "github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/indexer"
	"github.com/kbukum/transcriptcheck/ledger"
	"github.com/kbukum/transcriptcheck/logger"
	"github.com/kbukum/transcriptcheck/platform"
	"github.com/kbukum/transcriptcheck/storage"
	"github.com/kbukum/transcriptcheck/storage/local"
	"github.com/kbukum/transcriptcheck/transcription"
)

var talk = []transcription.Segment{
	{Start: 0, End: 6, Text: "Welcome back to the channel."},
	{Start: 6, End: 14, Text: "Today we look at the Opportunity rover."},
	{Start: 29.5, End: 31, Text: "It landed in 2004."},
	{Start: 30, End: 38, Text: "The mission was planned for ninety days."},
	{Start: 75, End: 80, Text: "It lasted fifteen years."},
}

type fakeAudio struct{ calls int }

func (f *fakeAudio) ExtractAudio(context.Context, string, float64, float64) (io.ReadCloser, error) {
	f.calls++
	return io.NopCloser(bytes.NewReader([]byte("mp3"))), nil
}

// fakeASR transcribes any audio as its fixed segments.
type fakeASR struct {
	segments []transcription.Segment
	err      error
}

func (f *fakeASR) Name() string                     { return "fake" }
func (f *fakeASR) IsAvailable(context.Context) bool { return true }
func (f *fakeASR) Transcribe(context.Context, transcription.Request) (*transcription.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &transcription.Transcript{Duration: 80, Segments: f.segments}, nil
}

func newStores(t *testing.T) (*storage.CAS, *ledger.GormStore) {
	t.Helper()
	fs, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := ledger.Config{Driver: ledger.DriverSQLite, DSN: filepath.Join(t.TempDir(), "ledger.db"), LogLevel: "silent"}
	db, err := ledger.OpenSQLite(context.Background(), cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return storage.NewCAS(fs, "chunks"), ledger.NewGormStore(db, ledger.DefaultTable, 30)
}

func TestSplit(t *testing.T) {
	chunks := indexer.Split(talk, 30)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3 (the 60s chunk is empty)", len(chunks))
	}
	wantStarts := []float64{0, 30, 60}
	wantLens := []int{3, 1, 1}
	for i, c := range chunks {
		if c.Start != wantStarts[i] || len(c.Segments) != wantLens[i] {
			t.Errorf("chunk %d: start=%v segments=%d", i, c.Start, len(c.Segments))
		}
	}
	// A segment starting exactly on a boundary belongs to the later chunk only.
	if chunks[1].Segments[0].Start != 30 {
		t.Errorf("boundary segment misplaced: %+v", chunks[1].Segments)
	}
	if indexer.Split(nil, 30) != nil {
		t.Error("no segments, no chunks")
	}
}

func TestIndexVideo(t *testing.T) {
	cas, store := newStores(t)
	audio := &fakeAudio{}
	ix := indexer.New(indexer.Config{}, audio, &fakeASR{segments: talk}, cas, store, logger.NewNop())

	rows, err := ix.IndexVideo(context.Background(), "mars")
	if err != nil {
		t.Fatalf("IndexVideo: %v", err)
	}
	if len(rows) != 3 || audio.calls != 1 {
		t.Fatalf("rows=%d audio calls=%d", len(rows), audio.calls)
	}
	for i, want := range []string{"youtube_mars_0", "youtube_mars_30", "youtube_mars_60"} {
		if rows[i].ContentKey != want || rows[i].VideoID != "mars" || rows[i].Type != ledger.DefaultIndexKey {
			t.Errorf("row %d = %+v, want key %s", i, rows[i], want)
		}
	}
	if rows[0].Content != "Welcome back to the channel. Today we look at the Opportunity rover. It landed in 2004." {
		t.Errorf("content = %q", rows[0].Content)
	}

	data, err := cas.Fetch(context.Background(), rows[1].CID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	var segs []transcription.Segment
	if err := json.Unmarshal(data, &segs); err != nil {
		t.Fatalf("chunk payload is not a segment array: %v", err)
	}
	if len(segs) != 1 || segs[0].Text != "The mission was planned for ninety days." {
		t.Errorf("chunk = %+v", segs)
	}

	got, err := store.LoadIndexWithVideo(context.Background(), "mars", 30)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ChunkStart != 30 || got[1].ChunkStart != 60 {
		t.Errorf("overlap rows = %+v", got)
	}
}

func TestReindexReplacesRows(t *testing.T) {
	cas, store := newStores(t)
	ix := indexer.New(indexer.Config{}, &fakeAudio{}, &fakeASR{segments: talk}, cas, store, logger.NewNop())
	for i := 0; i < 2; i++ {
		if _, err := ix.IndexVideo(context.Background(), "mars"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	idx, err := store.LoadIndex(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != 3 {
		t.Errorf("re-indexing duplicated rows: %d", len(idx))
	}
}

func TestIndexVideoFailures(t *testing.T) {
	cas, store := newStores(t)

	ix := indexer.New(indexer.Config{}, &fakeAudio{}, &fakeASR{}, cas, store, logger.NewNop())
	if _, err := ix.IndexVideo(context.Background(), "silent"); !apperrors.HasCode(err, apperrors.ErrCodeEmptyInput) {
		t.Errorf("empty transcript: expected EMPTY_INPUT, got %v", err)
	}

	boom := apperrors.ExternalServiceError("openai", errors.New("502"))
	ix = indexer.New(indexer.Config{}, &fakeAudio{}, &fakeASR{err: boom}, cas, store, logger.NewNop())
	if _, err := ix.IndexVideo(context.Background(), "mars"); !errors.Is(err, boom) {
		t.Errorf("expected ASR error, got %v", err)
	}

	if _, err := ix.IndexVideo(context.Background(), ""); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("blank id: expected INVALID_INPUT, got %v", err)
	}
}

type fixedDuration float64

func (d fixedDuration) Metadata(_ context.Context, id string) (*platform.Metadata, error) {
	return &platform.Metadata{VideoID: id, Duration: float64(d)}, nil
}

type fixedSampler float64

func (f fixedSampler) Float64() float64 { return float64(f) }

// windowASR answers a window request with the talk segments that start in it.
type windowASR struct{}

func (r *windowASR) Reference(_ context.Context, _ string, w audit.Window) (*transcription.Transcript, error) {
	return &transcription.Transcript{Segments: transcription.Clip(talk, w.Start, w.End)}, nil
}

func TestIndexedVideoPassesAudit(t *testing.T) {
	cas, store := newStores(t)
	ix := indexer.New(indexer.Config{}, &fakeAudio{}, &fakeASR{segments: talk}, cas, store, logger.NewNop())
	if _, err := ix.IndexVideo(context.Background(), "mars"); err != nil {
		t.Fatal(err)
	}

	for _, sample := range []float64{0, 0.6} {
		v, err := audit.NewValidator(audit.DefaultConfig(), audit.Deps{
			Metadata:  fixedDuration(80),
			Reference: &windowASR{},
			Index:     store,
			Chunks:    cas.Fetcher(),
			Sampler:   fixedSampler(sample),
		}, logger.NewNop())
		if err != nil {
			t.Fatal(err)
		}
		verdict, err := v.Validate(context.Background(), "mars")
		if err != nil {
			t.Fatalf("sample %v: %v", sample, err)
		}
		if verdict.Status != audit.StatusValid {
			t.Errorf("sample %v: window %+v status %s result %+v", sample, verdict.Window, verdict.Status, verdict.Result)
		}
	}
}
