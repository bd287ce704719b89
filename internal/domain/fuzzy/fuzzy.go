// Package fuzzy implements the phrase matching rule shared by keyword detection and
// rule-based scoring: exact token-sequence match first, then a Levenshtein ratio over
// sliding windows of comparable length.
package fuzzy

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/taxonomy"
	"github.com/massimocristi1970/CallAnalysisApp/internal/domain/transcript"
)

// MatchType tells how a phrase was found.
type MatchType string

// Match types.
const (
	Exact MatchType = "exact"
	Fuzzy MatchType = "fuzzy"
)

// Match is the best occurrence of a phrase in a transcript.
type Match struct {
	Confidence float64
	Type       MatchType
	// Offset and Length are in runes of the original transcript text.
	Offset int
	Length int
}

// Find locates phrase in t. ok is false when there is no exact match, no window reaches
// the fuzzy threshold, or the resulting confidence is below the keyword confidence threshold.
func Find(t transcript.Transcript, phrase string, th taxonomy.Thresholds) (Match, bool) {
	words := transcript.NormalizePhrase(phrase)
	tokens := t.Tokens()
	if len(words) == 0 || len(tokens) == 0 {
		return Match{}, false
	}

	if i := exactIndex(tokens, words); i >= 0 {
		return Match{Confidence: 1, Type: Exact, Offset: tokens[i].Offset, Length: span(tokens[i : i+len(words)])}, true
	}

	ratio, start, size := bestWindow(tokens, words, float64(th.Fuzzy))
	if size == 0 || ratio < float64(th.Fuzzy) {
		return Match{}, false
	}
	conf := ratio / 100
	if conf < th.KeywordConfidence {
		return Match{}, false
	}
	window := tokens[start : start+size]
	return Match{Confidence: conf, Type: Fuzzy, Offset: window[0].Offset, Length: span(window)}, true
}

// Ratio returns the normalised edit similarity of a and b in [0,100].
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 100
	}
	return 100 * (1 - float64(matchr.Levenshtein(a, b))/float64(longest))
}

func exactIndex(tokens []transcript.Token, words []string) int {
	n := len(words)
outer:
	for i := 0; i+n <= len(tokens); i++ {
		for j, w := range words {
			if tokens[i+j].Text != w {
				continue outer
			}
		}
		return i
	}
	return -1
}

// bestWindow scans windows of n-1, n and n+1 tokens. Ties keep the earliest window,
// then the shorter one. Windows whose length gap alone rules out threshold are skipped.
func bestWindow(tokens []transcript.Token, words []string, threshold float64) (ratio float64, start, size int) {
	target := strings.Join(words, " ")
	targetLen := utf8.RuneCountInString(target)
	n := len(words)
	ratio = -1

	for w := max(1, n-1); w <= n+1; w++ {
		for i := 0; i+w <= len(tokens); i++ {
			window := joinTokens(tokens[i : i+w])
			wLen := utf8.RuneCountInString(window)
			longest := max(wLen, targetLen)
			if ceiling := 100 * (1 - float64(abs(wLen-targetLen))/float64(longest)); ceiling < threshold {
				continue
			}
			r := Ratio(window, target)
			if r > ratio || (r == ratio && tokens[i].Offset < tokens[start].Offset) {
				ratio, start, size = r, i, w
			}
		}
	}
	return ratio, start, size
}

func joinTokens(tokens []transcript.Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func span(tokens []transcript.Token) int {
	last := tokens[len(tokens)-1]
	return last.Offset + last.Length - tokens[0].Offset
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
