package scoring

import (
	"math"

	"github.com/kbukum/transcriptcheck/transcription"
)

// SimilarityScore is exp(-(a-b)^2): 1 for equal values, falling towards 0
// as they drift apart.
func SimilarityScore(a, b float64) float64 {
	d := a - b
	return math.Exp(-d * d)
}

// TimestampWeights is [edge, duration]. Edge weighs start/end alignment,
// duration weighs matching lengths. The pair is not required to sum to 1.
type TimestampWeights [2]float64

// DefaultTimestampWeights favours duration over edge alignment.
var DefaultTimestampWeights = TimestampWeights{0.3, 0.7}

// TimestampScorer rates how closely two time ranges agree, in [0,1] for
// weights that sum to 1.
type TimestampScorer func(candidate, reference transcription.Timestamp) float64

// BuildTimestampScore returns a scorer computing
// ((startSim + endSim) / 2) * edge + durationSim * duration.
func BuildTimestampScore(w TimestampWeights) TimestampScorer {
	edgeW, durW := w[0], w[1]
	return func(candidate, reference transcription.Timestamp) float64 {
		startSim := SimilarityScore(candidate.Start, reference.Start)
		endSim := SimilarityScore(candidate.End, reference.End)
		durSim := SimilarityScore(candidate.Duration(), reference.Duration())
		return (startSim+endSim)/2*edgeW + durSim*durW
	}
}
