package scoring

import "math"

// DefaultMaxN is the highest n-gram order used by BLEU.
const DefaultMaxN = 4

// BrevityPenalty is 1 when the hypothesis is longer than the reference, 0
// for an empty hypothesis and exp(1 - ref/hyp) otherwise.
func BrevityPenalty(hypLen, refLen int) float64 {
	if hypLen > refLen {
		return 1
	}
	if hypLen == 0 {
		return 0
	}
	return math.Exp(1 - float64(refLen)/float64(hypLen))
}

// BLEUFromPrecisions is the geometric mean over n orders of the positive
// precisions, times bp.
//
// Orders with zero precision are left out of the product rather than
// zeroing it, so a hypothesis with unigram matches but no 4-gram matches
// still scores above 0. Textbook BLEU would return 0 there; existing
// verdicts were produced with this behaviour and it is kept.
func BLEUFromPrecisions(precisions []Precision, bp float64, n int) float64 {
	product := 1.0
	for _, p := range precisions {
		if v := p.Value(); v > 0 {
			product *= v
		}
	}
	return math.Pow(product, 1/float64(n)) * bp
}

// BLEU scores hypothesis against reference using orders 1..n.
func BLEU(hypothesis, reference []string, n int) float64 {
	precisions := NGramPrecisions(n, hypothesis, reference)
	bp := BrevityPenalty(len(hypothesis), len(reference))
	return BLEUFromPrecisions(precisions, bp, n)
}
