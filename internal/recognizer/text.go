package recognizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanOptions controls text post-processing behavior.
type CleanOptions struct {
	NormalizeForm      string // "NFC" (default), "NFKC", "NFD", "NFKD", "none" to disable
	RemoveControlChars bool   // remove non-printable control characters
	RemoveZeroWidth    bool   // remove zero-width spaces/joiners
	Uppercase          bool   // fold letters to upper case
}

// DefaultCleanOptions returns defaults for plate text. NFKC folds
// full-width letters and digits into their ASCII forms.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{
		NormalizeForm:      "NFKC",
		RemoveControlChars: true,
		RemoveZeroWidth:    true,
		Uppercase:          false,
	}
}

// PostProcessText normalizes and cleans one recognized fragment. It does not
// trim; whitespace handling is left to whoever joins the fragments.
func PostProcessText(s string, opts CleanOptions) string {
	if s == "" {
		return s
	}
	s = normalize(s, opts.NormalizeForm)
	if opts.RemoveZeroWidth || opts.RemoveControlChars {
		s = strings.Map(func(r rune) rune {
			if opts.RemoveZeroWidth && isZeroWidth(r) {
				return -1
			}
			if opts.RemoveControlChars && unicode.IsControl(r) {
				return -1
			}
			return r
		}, s)
	}
	if opts.Uppercase {
		s = strings.ToUpper(s)
	}
	return s
}

func normalize(s, form string) string {
	switch strings.ToUpper(form) {
	case "NFC", "":
		return norm.NFC.String(s)
	case "NFKC":
		return norm.NFKC.String(s)
	case "NFD":
		return norm.NFD.String(s)
	case "NFKD":
		return norm.NFKD.String(s)
	}
	return s
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\uFEFF':
		return true
	}
	return false
}
