package dispatch

import (
	"strings"
	"unicode"
)

// ContainsTrigger reports whether any keyword appears as a whole word in
// the utterance, case-insensitively. The keyword set is injected from
// config so it can be tested and localized independently.
func ContainsTrigger(utterance string, keywords []string) bool {
	if utterance == "" || len(keywords) == 0 {
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		for _, kw := range keywords {
			if w == strings.ToLower(kw) {
				return true
			}
		}
	}
	return false
}
