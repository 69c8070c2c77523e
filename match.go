package retrace

// Match is the immutable result of one successful match attempt.
//
// Group 0 is the whole match. A group that did not participate in the
// match has no span: Group returns "" and Span returns (-1, -1), never an
// error. Offsets are byte offsets into the searched text.
type Match struct {
	input string
	caps  []int // start/end pairs, slot layout; -1 when unset
	names map[string]int
}

func newMatch(input string, caps []int, names map[string]int) *Match {
	return &Match{input: input, caps: caps, names: names}
}

// Start returns the byte offset where the match begins.
func (m *Match) Start() int { return m.caps[0] }

// End returns the byte offset just past the match.
func (m *Match) End() int { return m.caps[1] }

// Text returns the matched substring.
func (m *Match) Text() string { return m.input[m.caps[0]:m.caps[1]] }

// Len returns the length of the match in bytes.
func (m *Match) Len() int { return m.caps[1] - m.caps[0] }

// IsEmpty reports whether the match is zero-width.
func (m *Match) IsEmpty() bool { return m.caps[0] == m.caps[1] }

// NumGroups returns the number of capturing groups, excluding group 0.
func (m *Match) NumGroups() int { return len(m.caps)/2 - 1 }

// Span returns the byte offsets of group i, or (-1, -1) when the group
// did not participate in the match or i is out of range.
func (m *Match) Span(i int) (start, end int) {
	if i < 0 || 2*i+1 >= len(m.caps) {
		return -1, -1
	}
	return m.caps[2*i], m.caps[2*i+1]
}

// Group returns the text captured by group i, or "" when the group did
// not participate in the match or i is out of range.
func (m *Match) Group(i int) string {
	start, end := m.Span(i)
	if start < 0 || end < 0 {
		return ""
	}
	return m.input[start:end]
}

// SpanByName is Span for a named group. An unknown name has no span.
func (m *Match) SpanByName(name string) (start, end int) {
	i, known := m.names[name]
	if !known {
		return -1, -1
	}
	return m.Span(i)
}

// GroupByName is Group for a named group. An unknown name captures
// nothing.
func (m *Match) GroupByName(name string) string {
	i, known := m.names[name]
	if !known {
		return ""
	}
	return m.Group(i)
}

// Groups returns the captured text of groups 1..N in order. Groups that
// did not participate hold "".
func (m *Match) Groups() []string {
	out := make([]string, m.NumGroups())
	for i := range out {
		out[i] = m.Group(i + 1)
	}
	return out
}
