package vm

import (
	"unicode"
	"unicode/utf8"

	"github.com/coregx/retrace/syntax"
)

// foldEq reports whether two runes are equal under case folding.
// Under ASCII mode only the letters A-Z/a-z fold.
func foldEq(a, b rune, ascii bool) bool {
	if a == b {
		return true
	}
	if ascii {
		return isASCIIAlpha(a) && isASCIIAlpha(b) && asciiLower(a) == asciiLower(b)
	}
	for c := unicode.SimpleFold(a); c != a; c = unicode.SimpleFold(c) {
		if c == b {
			return true
		}
	}
	return false
}

func isASCIIAlpha(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func asciiLower(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// isWordChar reports membership in the \w class: letters, digits and
// underscore. ASCII mode restricts letters and digits to ASCII.
func isWordChar(r rune, ascii bool) bool {
	if r == '_' {
		return true
	}
	if ascii {
		return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// isDigitChar reports membership in the \d class.
func isDigitChar(r rune, ascii bool) bool {
	if ascii {
		return '0' <= r && r <= '9'
	}
	return unicode.IsDigit(r)
}

// isSpaceChar reports membership in the \s class.
func isSpaceChar(r rune, ascii bool) bool {
	if ascii {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
			return true
		}
		return false
	}
	return unicode.IsSpace(r)
}

// inCategory reports whether r belongs to a shorthand category.
func inCategory(cat syntax.Category, r rune, ascii bool) bool {
	switch cat {
	case syntax.CategoryDigit:
		return isDigitChar(r, ascii)
	case syntax.CategoryNotDigit:
		return !isDigitChar(r, ascii)
	case syntax.CategorySpace:
		return isSpaceChar(r, ascii)
	case syntax.CategoryNotSpace:
		return !isSpaceChar(r, ascii)
	case syntax.CategoryWord:
		return isWordChar(r, ascii)
	case syntax.CategoryNotWord:
		return !isWordChar(r, ascii)
	}
	return false
}

// setContains reports whether r (exactly, no folding) is in the set's
// ranges or categories, before negation.
func setContains(set *syntax.CharSet, r rune, ascii bool) bool {
	for _, rr := range set.Ranges {
		if rr.Lo <= r && r <= rr.Hi {
			return true
		}
	}
	for _, cat := range set.Cats {
		if inCategory(cat, r, ascii) {
			return true
		}
	}
	return false
}

// matchClass reports whether r matches the class. Under folding, a rune
// is considered in the set if any of its case variants is; negation
// applies after folding, so under IGNORECASE 'I' does not match
// [^aeiou].
func matchClass(set *syntax.CharSet, r rune, fold, ascii bool) bool {
	in := setContains(set, r, ascii)
	if fold && !in {
		if ascii {
			if l := asciiLower(r); l != r {
				in = setContains(set, l, ascii)
			} else if u := asciiUpper(r); u != r {
				in = setContains(set, u, ascii)
			}
		} else {
			for c := unicode.SimpleFold(r); c != r; c = unicode.SimpleFold(c) {
				if setContains(set, c, ascii) {
					in = true
					break
				}
			}
		}
	}
	return in != set.Negated
}

func asciiUpper(r rune) rune {
	if 'a' <= r && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// stepBack walks w runes backward from pos in s. Returns the resulting
// byte offset, or false if fewer than w runes precede pos.
func stepBack(s string, pos, w int) (int, bool) {
	for i := 0; i < w; i++ {
		if pos == 0 {
			return 0, false
		}
		_, size := utf8.DecodeLastRuneInString(s[:pos])
		pos -= size
	}
	return pos, true
}
