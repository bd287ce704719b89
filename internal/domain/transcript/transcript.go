// Package transcript segments a call transcript once so every scorer can share the result.
package transcript

import (
	"strings"
)

// Token is a normalised word of the transcript.
// Offset and Length are measured in runes of the original text.
type Token struct {
	Text   string
	Offset int
	Length int
}

// Transcript is the immutable, pre-segmented form of a call's text.
type Transcript struct {
	text      string
	tokens    []Token
	sentences []string
}

// New normalises and segments text. It never fails; empty text yields an empty transcript.
func New(text string) Transcript {
	return Transcript{
		text:      text,
		tokens:    tokenize(text),
		sentences: splitSentences(text),
	}
}

// Join concatenates transcribed chunks of one call in order, separated by a single space.
func Join(chunks []string) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

// Text returns the original text.
func (t Transcript) Text() string { return t.text }

// Tokens returns the normalised tokens. The slice is shared and must not be modified.
func (t Transcript) Tokens() []Token { return t.tokens }

// Sentences returns a copy of the derived sentences in transcript order.
func (t Transcript) Sentences() []string {
	out := make([]string, len(t.sentences))
	copy(out, t.sentences)
	return out
}

// Empty reports whether the transcript has no matchable words.
func (t Transcript) Empty() bool { return len(t.tokens) == 0 }

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…', '\n', '\r':
		return true
	}
	return false
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(text, isSentenceEnd) {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" && len(tokenize(s)) > 0 {
			out = append(out, s)
		}
	}
	return out
}
