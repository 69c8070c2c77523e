package syntax

import "strings"

// Flags controls pattern compilation and matching behavior.
//
// Flags combine with bitwise OR:
//
//	tree, err := syntax.Parse(`^item`, syntax.IgnoreCase|syntax.MultiLine)
//
// The same flags can also be toggled inside a pattern: (?im) at the start
// of the pattern sets them globally, (?i:...) and (?-i:...) scope them to
// a group.
type Flags uint32

const (
	// IgnoreCase enables case-insensitive matching of literals, classes
	// and backreferences.
	IgnoreCase Flags = 1 << iota

	// MultiLine makes ^ and $ match at internal line boundaries in
	// addition to the start and end of the text.
	MultiLine

	// DotAll makes . match any character including newline.
	DotAll

	// Verbose strips unescaped whitespace and #-comments from the pattern
	// before parsing. It has no effect inside character classes.
	Verbose

	// ASCII restricts \w, \W, \b, \B, \d, \D, \s and \S to ASCII
	// characters, and limits case folding to the ASCII letters.
	ASCII
)

// flagLetters maps inline flag letters to their Flags bit, in the order
// they are printed by String.
var flagLetters = []struct {
	letter byte
	flag   Flags
}{
	{'a', ASCII},
	{'i', IgnoreCase},
	{'m', MultiLine},
	{'s', DotAll},
	{'x', Verbose},
}

// lookupFlag returns the flag bit for an inline flag letter.
// Returns 0 if the letter is not a known flag.
func lookupFlag(c rune) Flags {
	for _, fl := range flagLetters {
		if rune(fl.letter) == c {
			return fl.flag
		}
	}
	return 0
}

// String returns the flags in inline syntax, e.g. "im" for
// IgnoreCase|MultiLine. Returns the empty string for zero flags.
func (f Flags) String() string {
	var b strings.Builder
	for _, fl := range flagLetters {
		if f&fl.flag != 0 {
			b.WriteByte(fl.letter)
		}
	}
	return b.String()
}
