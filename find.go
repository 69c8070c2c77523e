package retrace

import (
	"iter"
	"unicode/utf8"
)

// Match attempts an anchored match at the start of text. A nil *Match
// with a nil error is an ordinary non-match; a non-nil error means the
// step budget was exhausted (*vm.LimitError).
func (p *Pattern) Match(text string) (*Match, error) {
	return p.MatchAt(text, 0)
}

// MatchAt attempts an anchored match at byte offset at.
func (p *Pattern) MatchAt(text string, at int) (*Match, error) {
	if at < 0 || at > len(text) {
		return nil, nil
	}
	return p.attempt(text, at, -1)
}

// FullMatch attempts a match anchored at the start that must consume the
// whole text. The machine backtracks into longer alternatives before
// giving up, so `a|ab` full-matches "ab".
func (p *Pattern) FullMatch(text string) (*Match, error) {
	return p.attempt(text, 0, len(text))
}

// Search returns the leftmost match in text, or nil when there is none.
func (p *Pattern) Search(text string) (*Match, error) {
	return p.SearchAt(text, 0)
}

// SearchAt returns the leftmost match beginning at or after byte offset
// at. Candidate positions come from the literal prefilter when the
// pattern has one.
func (p *Pattern) SearchAt(text string, at int) (*Match, error) {
	if at < 0 {
		at = 0
	}
	for pos := at; pos <= len(text); {
		if p.pre != nil {
			candidate := p.pre.Next(text, pos)
			if candidate < 0 {
				return nil, nil
			}
			pos = candidate
		}

		m, err := p.attempt(text, pos, -1)
		if err != nil || m != nil {
			return m, err
		}

		_, size := utf8.DecodeRuneInString(text[pos:])
		if size == 0 {
			break
		}
		pos += size
	}
	return nil, nil
}

// FindAll returns up to n successive non-overlapping matches as
// substrings of text. n <= 0 means all. After each match scanning
// resumes at its end, or one rune past its start when the match is
// zero-width.
func (p *Pattern) FindAll(text string, n int) ([]string, error) {
	var out []string
	for m, err := range p.FindIter(text) {
		if err != nil {
			return nil, err
		}
		out = append(out, m.Text())
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

// FindAllSubmatch returns up to n successive non-overlapping matches as
// capture tuples: groups 1..N per match, or group 0 when the pattern has
// no capturing groups. n <= 0 means all.
func (p *Pattern) FindAllSubmatch(text string, n int) ([][]string, error) {
	var out [][]string
	for m, err := range p.FindIter(text) {
		if err != nil {
			return nil, err
		}
		if p.NumGroups() == 0 {
			out = append(out, []string{m.Text()})
		} else {
			out = append(out, m.Groups())
		}
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

// FindIter returns an iterator over successive non-overlapping matches.
// The iterator is lazy and restartable: each range loop carries its own
// scan state. A step-budget abort is yielded once as a non-nil error and
// ends the sequence.
func (p *Pattern) FindIter(text string) iter.Seq2[*Match, error] {
	return func(yield func(*Match, error) bool) {
		pos := 0
		for pos <= len(text) {
			m, err := p.SearchAt(text, pos)
			if err != nil {
				yield(nil, err)
				return
			}
			if m == nil {
				return
			}
			if !yield(m, nil) {
				return
			}
			pos = nextScanPos(text, m)
		}
	}
}

// attempt runs one anchored attempt on a pooled machine.
func (p *Pattern) attempt(text string, start, endTarget int) (*Match, error) {
	b := p.get()
	caps, err := b.Run(text, start, endTarget)
	p.put(b)
	if err != nil || caps == nil {
		return nil, err
	}
	return newMatch(text, caps, p.prog.Names), nil
}

// nextScanPos returns where the scan resumes after a match: its end, or
// one rune later for a zero-width match so the scan always advances.
func nextScanPos(text string, m *Match) int {
	pos := m.End()
	if !m.IsEmpty() {
		return pos
	}
	_, size := utf8.DecodeRuneInString(text[pos:])
	if size == 0 {
		return pos + 1
	}
	return pos + size
}
