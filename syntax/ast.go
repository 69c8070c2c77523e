package syntax

// Unbounded marks a repetition with no upper limit, as in a* or a{2,}.
const Unbounded = -1

// NodeKind identifies the variant of an AST node.
type NodeKind int

const (
	KindLiteral   NodeKind = iota // single character
	KindClass                     // character class [...] or shorthand
	KindAnyChar                   // .
	KindConcat                    // sequence
	KindAlternate                 // a|b|c
	KindRepeat                    // * + ? {m,n}, greedy or lazy
	KindGroup                     // (...) (?:...) (?P<name>...) (?flags:...)
	KindBackref                   // \1 or (?P=name)
	KindAssert                    // ^ $ \b \B \A \Z
	KindLook                      // lookahead / lookbehind
	KindCond                      // (?(id)yes|no)
)

// Node is one node of the pattern syntax tree. The set of implementations
// is closed; consumers dispatch with a type switch.
type Node interface {
	Kind() NodeKind
}

// AssertKind identifies a zero-width assertion.
type AssertKind int

const (
	AssertBeginLine       AssertKind = iota // ^
	AssertEndLine                           // $
	AssertBeginText                         // \A
	AssertEndText                           // \Z
	AssertWordBoundary                      // \b
	AssertNonWordBoundary                   // \B
)

// Category is a shorthand character category usable inside a CharSet.
type Category int

const (
	CategoryDigit    Category = iota // \d
	CategoryNotDigit                 // \D
	CategorySpace                    // \s
	CategoryNotSpace                 // \S
	CategoryWord                     // \w
	CategoryNotWord                  // \W
)

// RuneRange is an inclusive range of characters inside a class.
type RuneRange struct {
	Lo, Hi rune
}

// CharSet is the contents of a character class: explicit ranges plus
// shorthand categories, optionally negated as a whole.
type CharSet struct {
	Negated bool
	Ranges  []RuneRange
	Cats    []Category
}

// Literal matches exactly one character.
type Literal struct {
	R rune
}

func (*Literal) Kind() NodeKind { return KindLiteral }

// Class matches one character against a CharSet.
type Class struct {
	Set CharSet
}

func (*Class) Kind() NodeKind { return KindClass }

// AnyChar matches any single character; whether it matches newline is
// decided by the DotAll flag in scope at compile time.
type AnyChar struct{}

func (*AnyChar) Kind() NodeKind { return KindAnyChar }

// Concat matches its children in sequence. An empty Concat matches the
// empty string.
type Concat struct {
	Nodes []Node
}

func (*Concat) Kind() NodeKind { return KindConcat }

// Alternate tries its branches left to right.
type Alternate struct {
	Nodes []Node
}

func (*Alternate) Kind() NodeKind { return KindAlternate }

// Repeat matches its child between Min and Max times. Max == Unbounded
// means no upper limit. Greedy repeats prefer the maximum count.
type Repeat struct {
	Node   Node
	Min    int
	Max    int
	Greedy bool
}

func (*Repeat) Kind() NodeKind { return KindRepeat }

// Group is a parenthesized subpattern. Capturing groups carry a 1-based
// Index and an optional Name. AddFlags and DelFlags record scoped inline
// flag toggles like (?i:...) and (?-i:...).
type Group struct {
	Node      Node
	Capturing bool
	Index     int
	Name      string
	AddFlags  Flags
	DelFlags  Flags
}

func (*Group) Kind() NodeKind { return KindGroup }

// Backref requires the input to repeat the text captured by group Index.
// Named backreferences are resolved to their index during parsing.
type Backref struct {
	Index int
}

func (*Backref) Kind() NodeKind { return KindBackref }

// Assert is a zero-width position assertion.
type Assert struct {
	AssertKind AssertKind
}

func (*Assert) Kind() NodeKind { return KindAssert }

// Look is a lookahead or lookbehind assertion. For lookbehind, Width is
// the fixed width of the subpattern in runes, validated during parsing.
type Look struct {
	Node    Node
	Behind  bool
	Negated bool
	Width   int
}

func (*Look) Kind() NodeKind { return KindLook }

// Cond selects Yes if the referenced group captured, else No.
// No may be nil, in which case the no-branch matches the empty string.
type Cond struct {
	Group int
	Yes   Node
	No    Node
}

func (*Cond) Kind() NodeKind { return KindCond }

// Tree is a parsed pattern: the AST root, the finalized flag set, and the
// group table. Groups counts capturing groups (group 0, the whole match,
// is implicit). Names maps each group name to its index.
type Tree struct {
	Root    Node
	Flags   Flags
	Groups  int
	Names   map[string]int
	Pattern string
}

// MinWidth reports the minimum number of characters a node can consume.
// A repetition whose body has MinWidth zero can iterate without advancing
// and needs a termination guard in the compiled program.
func MinWidth(n Node) int {
	min, _ := nodeWidth(n)
	return min
}

// nodeWidth reports the minimum and maximum number of characters a node
// can consume. max == Unbounded means no static upper bound. Used to
// validate lookbehind subpatterns, which must have min == max.
func nodeWidth(n Node) (min, max int) {
	switch t := n.(type) {
	case *Literal, *Class, *AnyChar:
		return 1, 1
	case *Assert:
		return 0, 0
	case *Look:
		return 0, 0
	case *Backref:
		// Width depends on what the group captured at match time.
		return 0, Unbounded
	case *Concat:
		for _, c := range t.Nodes {
			cmin, cmax := nodeWidth(c)
			min += cmin
			max = addWidth(max, cmax)
		}
		return min, max
	case *Alternate:
		if len(t.Nodes) == 0 {
			return 0, 0
		}
		min, max = nodeWidth(t.Nodes[0])
		for _, b := range t.Nodes[1:] {
			bmin, bmax := nodeWidth(b)
			if bmin < min {
				min = bmin
			}
			if max != Unbounded && (bmax == Unbounded || bmax > max) {
				max = bmax
			}
		}
		return min, max
	case *Repeat:
		cmin, cmax := nodeWidth(t.Node)
		min = cmin * t.Min
		if t.Max == Unbounded || cmax == Unbounded {
			if cmax == 0 {
				return min, min
			}
			return min, Unbounded
		}
		return min, cmax * t.Max
	case *Group:
		return nodeWidth(t.Node)
	case *Cond:
		ymin, ymax := nodeWidth(t.Yes)
		nmin, nmax := 0, 0
		if t.No != nil {
			nmin, nmax = nodeWidth(t.No)
		}
		if nmin < ymin {
			ymin, nmin = nmin, ymin
		}
		if ymax != Unbounded && (nmax == Unbounded || nmax > ymax) {
			ymax = nmax
		}
		return ymin, ymax
	}
	return 0, 0
}

// addWidth adds two maximum widths, propagating Unbounded.
func addWidth(a, b int) int {
	if a == Unbounded || b == Unbounded {
		return Unbounded
	}
	return a + b
}
