package textindex

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// minTokenLength drops single-character tokens such as "c" in "c++".
const minTokenLength = 2

// Tokenize lower-cases text and splits it into word tokens. A token is a maximal run of
// letters, digits, marks or underscores at least two runes long.
func Tokenize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// a Caser keeps state between calls, so each call gets its own
	lowered := cases.Lower(language.Und).String(text)

	var (
		tokens []string
		word   strings.Builder
		runes  int
	)
	flush := func() {
		if runes >= minTokenLength {
			tokens = append(tokens, word.String())
		}
		word.Reset()
		runes = 0
	}

	for _, r := range lowered {
		if isWordRune(r) {
			word.WriteRune(r)
			runes++
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// NGrams returns the unigrams followed by the bigrams of text.
func NGrams(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	grams := make([]string, 0, 2*len(tokens)-1)
	grams = append(grams, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		grams = append(grams, tokens[i]+" "+tokens[i+1])
	}
	return grams
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}
