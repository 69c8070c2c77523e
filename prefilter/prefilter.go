// Package prefilter narrows down candidate match positions before the
// backtracking engine runs.
//
// When every match of a pattern must begin with one of a small set of
// literal prefixes, scanning for those prefixes is far cheaper than
// attempting the full pattern at every position. A single prefix uses
// the stdlib substring search; several prefixes share an Aho-Corasick
// automaton.
//
// A prefilter only proposes positions; the engine still verifies each
// candidate. It must therefore be sound: it may report positions that
// do not match, but never skip one that does.
package prefilter

import (
	"strings"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/retrace/syntax"
)

// Prefilter reports candidate match start positions.
type Prefilter interface {
	// Next returns the first candidate position at or after start, or
	// -1 when no candidate remains.
	Next(haystack string, start int) int
}

// FromTree builds a prefilter for a parsed pattern, or returns nil when
// the pattern has no usable literal prefixes. Case-insensitive patterns
// are not prefiltered; folding would multiply the prefix set beyond
// usefulness.
func FromTree(tree *syntax.Tree) Prefilter {
	if tree.Flags&syntax.IgnoreCase != 0 {
		return nil
	}

	prefixes, _ := extract(tree.Root)
	if len(prefixes) == 0 {
		return nil
	}
	for _, p := range prefixes {
		if p == "" {
			return nil
		}
	}

	if len(prefixes) == 1 {
		return &singleLiteral{needle: prefixes[0]}
	}

	builder := ahocorasick.NewBuilder()
	for _, p := range prefixes {
		builder.AddPattern([]byte(p))
	}
	auto, err := builder.Build()
	if err != nil {
		return nil
	}
	return &multiLiteral{auto: auto}
}

// singleLiteral scans for one required prefix.
type singleLiteral struct {
	needle string
}

func (s *singleLiteral) Next(haystack string, start int) int {
	if start > len(haystack) {
		return -1
	}
	i := strings.Index(haystack[start:], s.needle)
	if i < 0 {
		return -1
	}
	return start + i
}

// multiLiteral scans for any of several required prefixes with an
// Aho-Corasick automaton.
type multiLiteral struct {
	auto *ahocorasick.Automaton
}

func (m *multiLiteral) Next(haystack string, start int) int {
	if start > len(haystack) {
		return -1
	}
	match := m.auto.Find([]byte(haystack), start)
	if match == nil {
		return -1
	}
	return match.Start
}
