// Package words splits free text into the tokens stored in the word table.
package words

import (
	"strings"
	"unicode"
)

// Token length bounds, in runes: a token is at least MinLength and shorter
// than MaxLength.
const (
	MinLength = 3
	MaxLength = 20
)

// Tokenize returns the distinct lowercase tokens of text in order of first
// appearance. A token is a maximal run of letters and digits; any other rune
// ends the run. Runs outside [MinLength, MaxLength) are dropped.
//
// A run is only emitted when a separator follows it, so a run that reaches
// the end of text is dropped: Tokenize("hello world") is ["hello"].
func Tokenize(text string) []string {
	var (
		tokens []string
		seen   = make(map[string]struct{})
		run    strings.Builder
		n      int
	)
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			run.WriteRune(r)
			n++
			continue
		}
		if n >= MinLength && n < MaxLength {
			w := strings.ToLower(run.String())
			if _, ok := seen[w]; !ok {
				seen[w] = struct{}{}
				tokens = append(tokens, w)
			}
		}
		run.Reset()
		n = 0
	}
	return tokens
}
