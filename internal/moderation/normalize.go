package moderation

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize flattens evasion tricks before term matching: diacritics are
// stripped, zero-width and directional control characters removed, and
// in-word separator padding ("k.y.s", "k-y-s") collapsed. Whitespace runs
// become a single space and everything is lowercased.
func Normalize(text string) string {
	decomposed := norm.NFD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	space := false
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from decomposition
		case isInvisible(r):
		case isSeparatorPadding(r):
		case unicode.IsSpace(r):
			if !space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = true
			continue
		default:
			b.WriteRune(unicode.ToLower(r))
		}
		space = false
	}
	return strings.TrimRight(b.String(), " ")
}

func isInvisible(r rune) bool {
	switch {
	case r >= 0x200B && r <= 0x200F: // zero width, joiners, LRM/RLM
		return true
	case r == 0xFEFF:
		return true
	case r >= 0x202A && r <= 0x202E: // directional embedding/override
		return true
	case r >= 0x2066 && r <= 0x2069: // directional isolate
		return true
	}
	return false
}

func isSeparatorPadding(r rune) bool {
	switch r {
	case '.', '-', '_', '*', '~', '`':
		return true
	}
	return false
}
