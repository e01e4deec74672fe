package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldName reduces a column or alias name to its matching form: NFKC
// compatibility composition, full Unicode case folding and no whitespace.
// "  Mean EJI " and "MEAN EJI" both fold to "meaneji".
func FoldName(name string) string {
	folded := cases.Fold().String(norm.NFKC.String(name))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// foldKey is the trim-and-lowercase form used for summary-row detection.
func foldKey(key string) string {
	return cases.Fold().String(strings.TrimSpace(key))
}

// keyTokens splits a folded entity key into its letter/digit words.
func keyTokens(key string) []string {
	return strings.FieldsFunc(foldKey(key), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
