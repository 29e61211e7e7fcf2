package scoring

import (
	"fmt"

	"github.com/kbukum/transcriptcheck/errors"
	"github.com/kbukum/transcriptcheck/transcription"
	"github.com/kbukum/transcriptcheck/validation"
)

// TranscriptWeights is [timestamp, text]. Each weight lies in [0, 1] and the
// pair must sum to a value that rounds to 1.
type TranscriptWeights [2]float64

// DefaultTranscriptWeights trusts wording far more than timing.
var DefaultTranscriptWeights = TranscriptWeights{0.1, 0.9}

// Validate returns a CONFIGURATION_ERROR when a weight leaves [0, 1] or the
// pair does not round to 1.
func (w TranscriptWeights) Validate() error {
	if !validation.WeightsInRange(w[:]) {
		return errors.Configuration(fmt.Sprintf("transcript weights %v must each be within [0, 1]", w[:])).
			WithDetail("weights", w[:])
	}
	if !validation.WeightsSumToOne(w[:]) {
		return errors.Configuration(fmt.Sprintf("transcript weights %v must sum to 1", w[:])).
			WithDetail("weights", w[:])
	}
	return nil
}

// TranscriptBLEU scores candidate against reference as
// timestamp*w[0] + BLEU(text)*w[1]. A nil timestamp scorer uses
// BuildTimestampScore(DefaultTimestampWeights). Identical segments score 1
// under any weights that sum to exactly 1.
func TranscriptBLEU(candidate, reference transcription.Segment, w TranscriptWeights, ts TimestampScorer) (float64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	if ts == nil {
		ts = BuildTimestampScore(DefaultTimestampWeights)
	}

	tsScore := ts(candidate.Timestamp(), reference.Timestamp())
	textScore := BLEU(TextTokens(candidate), TextTokens(reference), DefaultMaxN)
	return tsScore*w[0] + textScore*w[1], nil
}

// Scorer binds a weight configuration so callers score without repeating it.
type Scorer struct {
	weights   TranscriptWeights
	timestamp TimestampScorer
}

// NewScorer validates the transcript weights once up front.
func NewScorer(transcript TranscriptWeights, timestamp TimestampWeights) (*Scorer, error) {
	if err := transcript.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: transcript, timestamp: BuildTimestampScore(timestamp)}, nil
}

// Score is TranscriptBLEU with the bound weights.
func (s *Scorer) Score(candidate, reference transcription.Segment) float64 {
	score, _ := TranscriptBLEU(candidate, reference, s.weights, s.timestamp)
	return score
}
