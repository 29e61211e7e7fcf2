// Package scoring compares a published transcript segment against a freshly
// generated reference segment.
//
// The score blends two signals. Text similarity is BLEU over
// lower-cased, punctuation-split tokens. Timing similarity is a Gaussian
// kernel over start, end and duration. Everything here is pure and safe for
// concurrent use.
//
//	score, err := scoring.TranscriptBLEU(candidate, reference, scoring.DefaultTranscriptWeights, nil)
package scoring
