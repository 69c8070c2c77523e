// Package syntax parses regular-expression patterns into an abstract
// syntax tree.
//
// The grammar follows the Python re module: greedy and lazy quantifiers,
// capturing and named groups, backreferences, lookahead and lookbehind
// assertions, conditional groups, and inline flag toggles. Parsing resolves
// escapes, assigns group numbers in opening-parenthesis order, and verifies
// that every lookbehind subpattern has a statically fixed width.
//
// The parser is the first stage of the pipeline: pattern text becomes a
// *Tree here, the vm package lowers the Tree into an executable program.
package syntax

import "fmt"

// ParseError describes a malformed pattern. Pos is the rune offset into
// the pattern at which the problem was detected.
type ParseError struct {
	Msg     string
	Pattern string
	Pos     int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("retrace: parse error in %q: %s at position %d", e.Pattern, e.Msg, e.Pos)
}
