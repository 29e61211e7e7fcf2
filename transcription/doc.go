// Package transcription holds the segment model shared by the scorer, the
// validator and the indexer, the window operations on it (Clip, Stitch,
// Flatten) and the speech-to-text Provider contract.
//
// Backends:
//
//   - transcription/openai: OpenAI audio transcription API
//   - transcription/whisper: self-hosted faster-whisper sidecar
//
// All segment times are absolute seconds from the start of the video.
// Providers that transcribe a window shift their output by Request.Offset.
package transcription
