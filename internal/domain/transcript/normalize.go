package transcript

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Pipeline order
// 1 compatibility decomposition (NFKD) so accents split into combining marks
// 2 Unicode case folding
// 3 remove combining marks and format characters (ZWJ, ZWNJ, FEFF)
// 4 width fold fullwidth forms to ASCII
// 5 recompose (NFC)
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Mn)),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
			norm.NFC,
		)
	},
}

func fold(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// apostrophes are dropped inside words so "don't" and "dont" compare equal.
func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '‘', 'ʼ', '`':
		return true
	}
	return false
}

type runeClass int

const (
	classSeparator runeClass = iota
	classWord
	classIgnored
)

func classify(r rune) runeClass {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.Is(unicode.Mn, r):
		return classWord
	case isApostrophe(r), unicode.Is(unicode.Cf, r):
		return classIgnored
	default:
		return classSeparator
	}
}

// keepWord strips anything the fold step may have produced that is not a letter or digit
// (NFKD turns "½" into "1⁄2").
func keepWord(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// tokenize splits s into normalised tokens carrying rune offsets into s.
func tokenize(s string) []Token {
	var (
		tokens []Token
		raw    strings.Builder
		start  = -1
		end    = -1
		pos    = 0
	)
	flush := func() {
		if start < 0 {
			return
		}
		if word := keepWord(fold(raw.String())); word != "" {
			tokens = append(tokens, Token{Text: word, Offset: start, Length: end - start})
		}
		raw.Reset()
		start, end = -1, -1
	}
	for _, r := range s {
		switch classify(r) {
		case classWord:
			if start < 0 {
				start = pos
			}
			raw.WriteRune(r)
			end = pos + 1
		case classIgnored:
			if start >= 0 {
				end = pos + 1
			}
		default:
			flush()
		}
		pos++
	}
	flush()
	return tokens
}

// Normalize returns the folded, punctuation-free form of s with single spaces between words.
func Normalize(s string) string {
	return strings.Join(NormalizePhrase(s), " ")
}

// NormalizePhrase returns the normalised tokens of a configured phrase.
// An empty result means the phrase has no matchable content.
func NormalizePhrase(s string) []string {
	tokens := tokenize(s)
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}
