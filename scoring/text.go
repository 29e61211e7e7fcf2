package scoring

import (
	"regexp"
	"strings"

	"github.com/kbukum/transcriptcheck/transcription"
)

// space is the whitespace class used around punctuation. It is wider than
// RE2's \s: it also covers the Unicode space separators, the line and
// paragraph separators and the byte order mark.
const space = `\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var punctuation = regexp.MustCompile(`(\w)([^` + space + `\w])[` + space + `]*`)

// BreakPunctuation surrounds every punctuation character that directly
// follows a word character with single spaces, swallowing any whitespace
// after it, then trims trailing whitespace. Applying it twice yields the
// same string as applying it once.
//
//	BreakPunctuation("Hello,world!") == "Hello , world !"
func BreakPunctuation(text string) string {
	return strings.TrimRightFunc(punctuation.ReplaceAllString(text, "$1 $2 "), isSpace)
}

// Tokenize lower-cases text and splits it on single spaces. Runs of spaces
// produce empty tokens.
func Tokenize(text string) []string {
	return strings.Split(strings.ToLower(text), " ")
}

// TextTokens is Tokenize(BreakPunctuation(seg.Text)).
func TextTokens(seg transcription.Segment) []string {
	return Tokenize(BreakPunctuation(seg.Text))
}

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0x00a0, 0x1680, 0x2028, 0x2029, 0x202f, 0x205f, 0x3000, 0xfeff:
		return true
	}
	return r >= 0x2000 && r <= 0x200a
}
