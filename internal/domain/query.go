package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeQuery folds a user query into its canonical cache form: NFC,
// lowercased and trimmed. Inner spacing is kept as typed.
func NormalizeQuery(query string) string {
	value := norm.NFC.String(query)
	value = cases.Lower(language.Und).String(value)
	return strings.TrimSpace(value)
}
