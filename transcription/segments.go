package transcription

import (
	"strings"

	"github.com/kbukum/transcriptcheck/errors"
)

// Clip keeps the segments whose start lies in [start, end], inclusive on
// both ends. Segment ends are not checked, so a segment that begins inside
// the window survives even if it runs past it.
func Clip(segments []Segment, start, end float64) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Start >= start && s.Start <= end {
			out = append(out, s)
		}
	}
	return out
}

// ClipHalfOpen keeps the segments whose start lies in [start, end). The
// indexer uses it so a segment starting exactly on a chunk boundary belongs
// to the following chunk only.
func ClipHalfOpen(segments []Segment, start, end float64) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		if s.Start >= start && s.Start < end {
			out = append(out, s)
		}
	}
	return out
}

// Stitch merges an ordered, non-empty run of segments into one segment
// spanning the first start to the last end with texts joined by spaces.
func Stitch(segments []Segment) (Segment, error) {
	if len(segments) == 0 {
		return Segment{}, errors.EmptyInput("segments")
	}
	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return Segment{
		Start: segments[0].Start,
		End:   segments[len(segments)-1].End,
		Text:  strings.Join(texts, " "),
	}, nil
}

// Flatten concatenates chunked segment lists in order.
func Flatten(chunks [][]Segment) []Segment {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]Segment, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Shift returns a copy of segments with offset added to every timestamp.
func Shift(segments []Segment, offset float64) []Segment {
	out := make([]Segment, len(segments))
	for i, s := range segments {
		out[i] = Segment{Start: s.Start + offset, End: s.End + offset, Text: s.Text}
	}
	return out
}
