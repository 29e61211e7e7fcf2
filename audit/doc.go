// Package audit verifies published transcript chunks.
//
// A Validator samples an interval-aligned window of a video, regenerates a
// reference transcript for that window from the raw audio, loads the chunks
// previously published for the same window from the ledger and the content
// store, and scores the two with scoring.TranscriptBLEU. The outcome is a
// Verdict: valid, invalid (score at or below the threshold, or nothing was
// published) or inconclusive (a collaborator failed or timed out).
//
// Every collaborator is an interface so the whole flow runs against
// in-memory fakes.
package audit
