package transcription

import "io"

// Segment is one time-stamped unit of transcribed speech. End >= Start.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Timestamp is the timing projection of a Segment.
type Timestamp struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (t Timestamp) Duration() float64 { return t.End - t.Start }

// Timestamp returns the timing of s.
func (s Segment) Timestamp() Timestamp { return Timestamp{Start: s.Start, End: s.End} }

// Transcript is the output of a speech-to-text call.
type Transcript struct {
	// Duration of the transcribed audio in seconds.
	Duration float64   `json:"duration"`
	Language string    `json:"language,omitempty"`
	Text     string    `json:"text,omitempty"`
	Segments []Segment `json:"segments"`
}

// Request holds parameters for a transcription call.
type Request struct {
	Audio io.Reader
	// FileName is sent with the upload; backends infer the codec from its extension.
	FileName string
	Language string
	Model    string
	// Offset is added to every returned timestamp.
	Offset float64
}
