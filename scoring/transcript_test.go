package scoring

import (
	"math"
	"testing"

	"github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/transcription"
)

const (
	nasaReference = "The NASA Opportunity rover is battling a massive dust storm on Mars."
	nasaCandidate = "A NASA rover is fighting a massive storm on Mars."
)

func TestSimilarityScore(t *testing.T) {
	for _, x := range []float64{-3, 0, 0.5, 12.345, 1e6} {
		if got := SimilarityScore(x, x); got != 1 {
			t.Errorf("SimilarityScore(%v, %v) = %v, want 1", x, x, got)
		}
	}
	prev := 1.0
	for _, d := range []float64{0.1, 0.5, 1, 2, 3} {
		got := SimilarityScore(10, 10+d)
		if got <= 0 || got >= prev {
			t.Errorf("distance %v: %v not in (0, %v)", d, got, prev)
		}
		if SimilarityScore(10+d, 10) != got {
			t.Errorf("not symmetric at distance %v", d)
		}
		prev = got
	}
}

func TestBuildTimestampScore(t *testing.T) {
	ts := BuildTimestampScore(DefaultTimestampWeights)

	same := transcription.Timestamp{Start: 0, End: 12.345}
	if got := ts(same, same); !approx(got, 1) {
		t.Errorf("identical timestamps = %v, want 1", got)
	}

	cand := transcription.Timestamp{Start: 4, End: 17}
	ref := transcription.Timestamp{Start: 5, End: 15}
	want := (math.Exp(-1)+math.Exp(-4))/2*0.3 + math.Exp(-9)*0.7
	if got := ts(cand, ref); !approx(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTranscriptBLEU_Identical(t *testing.T) {
	seg := transcription.Segment{Start: 3, End: 9.5, Text: nasaReference}
	for _, w := range []TranscriptWeights{{0.1, 0.9}, {0, 1}, {1, 0}, {0.5, 0.5}} {
		got, err := TranscriptBLEU(seg, seg, w, nil)
		if err != nil {
			t.Fatalf("weights %v: %v", w, err)
		}
		if !approx(got, 1) {
			t.Errorf("weights %v: identical segments scored %v", w, got)
		}
	}
}

func TestTranscriptBLEU_Reference(t *testing.T) {
	ref := transcription.Segment{Start: 0, End: 12.345, Text: nasaReference}
	cand := transcription.Segment{Start: 0, End: 12.345, Text: nasaCandidate}

	tests := []struct {
		name string
		cand transcription.Segment
		w    TranscriptWeights
		want float64
	}{
		{"text only", cand, TranscriptWeights{0, 1}, 0.27221791},
		{"defaults", cand, DefaultTranscriptWeights, 0.34499612},
		{"timing only, shifted two seconds", transcription.Segment{Start: 2, End: 14.345, Text: nasaReference}, TranscriptWeights{1, 0}, 0.70549469},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TranscriptBLEU(tc.cand, ref, tc.w, nil)
			if err != nil {
				t.Fatal(err)
			}
			if !approx(got, tc.want) {
				t.Errorf("score = %.8f, want %.8f", got, tc.want)
			}
		})
	}
}

func TestTranscriptBLEU_InvalidWeights(t *testing.T) {
	seg := transcription.Segment{Start: 0, End: 1, Text: "x"}
	for _, w := range []TranscriptWeights{{0.9, 0.9}, {0.2, 0.2}, {0, 0}, {1.5, -0.5}, {-0.1, 1.1}} {
		_, err := TranscriptBLEU(seg, seg, w, nil)
		appErr, ok := errors.AsAppError(err)
		if !ok || appErr.Code != errors.ErrCodeConfiguration {
			t.Errorf("weights %v: expected CONFIGURATION_ERROR, got %v", w, err)
			continue
		}
		if appErr.Retryable {
			t.Errorf("weights %v: configuration errors are not retryable", w)
		}
	}
}

func TestNewScorer_RejectsOutOfRangeWeights(t *testing.T) {
	for _, w := range []TranscriptWeights{{1.5, -0.5}, {-0.1, 1.1}} {
		if _, err := NewScorer(w, DefaultTimestampWeights); !errors.HasCode(err, errors.ErrCodeConfiguration) {
			t.Errorf("NewScorer(%v) = %v, want CONFIGURATION_ERROR", w, err)
		}
	}
}

func TestTranscriptBLEU_CustomTimestampScorer(t *testing.T) {
	seg := transcription.Segment{Start: 0, End: 1, Text: "same words"}
	constant := func(_, _ transcription.Timestamp) float64 { return 0.5 }
	got, err := TranscriptBLEU(seg, seg, TranscriptWeights{0.5, 0.5}, constant)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(got, 0.75) {
		t.Errorf("got %v, want 0.75", got)
	}
}

func TestNewScorer(t *testing.T) {
	if _, err := NewScorer(TranscriptWeights{1, 1}, DefaultTimestampWeights); err == nil {
		t.Fatal("expected configuration error")
	}
	s, err := NewScorer(DefaultTranscriptWeights, DefaultTimestampWeights)
	if err != nil {
		t.Fatal(err)
	}
	ref := transcription.Segment{Start: 0, End: 12.345, Text: nasaReference}
	cand := transcription.Segment{Start: 0, End: 12.345, Text: nasaCandidate}
	if got := s.Score(cand, ref); !approx(got, 0.34499612) {
		t.Errorf("Score = %v", got)
	}
}
