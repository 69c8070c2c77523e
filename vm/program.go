package vm

import (
	"fmt"
	"strings"

	"github.com/coregx/retrace/syntax"
)

// Op identifies a matching instruction.
type Op uint8

const (
	OpChar    Op = iota // match one literal rune
	OpClass             // match one rune against a character set
	OpAny               // match any rune (newline per DotAll)
	OpJmp               // continue at Out
	OpSplit             // choice point: prefer Out, fall back to Out1
	OpSave              // store the cursor in slot Slot
	OpAssert            // zero-width position assertion
	OpBackref           // match the text captured by group Slot
	OpLook              // run Sub as a nested attempt at the cursor
	OpCond              // continue at Out if group Slot captured, else Out1
	OpMark              // record the cursor in loop slot Slot
	OpEndLoop           // loop back to Out if the cursor advanced past the mark
	OpMatch             // attempt succeeded
)

// Inst is a single instruction. Unless an instruction transfers control
// explicitly, execution falls through to the next one.
//
// Flag-dependent behavior (case folding, dot-matches-newline, multiline
// anchors, ASCII class membership) is baked into each instruction at
// compile time, so scoped inline flags cost nothing at match time.
type Inst struct {
	Op   Op
	Out  int // jump target / preferred branch
	Out1 int // alternative branch (OpSplit, OpCond)

	R    rune            // OpChar
	Set  *syntax.CharSet // OpClass
	Slot int             // OpSave: slot; OpMark/OpEndLoop: loop slot; OpBackref/OpCond: group index

	Assert syntax.AssertKind // OpAssert

	Fold      bool // case-insensitive comparison
	DotAll    bool // OpAny matches newline
	MultiLine bool // ^ and $ match at line boundaries
	ASCII     bool // ASCII-only class membership and folding

	Sub    *Program // OpLook subprogram
	Negate bool     // OpLook: negative assertion
	Behind bool     // OpLook: lookbehind
	Width  int      // OpLook: fixed lookbehind width in runes
}

// Program is a compiled pattern: an instruction sequence plus the group
// table. A Program is immutable once built and safe for concurrent use;
// all mutable match state lives in the Backtracker.
//
// Lookaround subprograms (reached through Inst.Sub) are fragments: they
// share the capture and loop slots of the root Program and carry no slot
// counts of their own.
type Program struct {
	Insts []Inst

	// NumGroups counts capturing groups, excluding group 0.
	NumGroups int

	// NumLoops counts loop mark slots across the root program and all
	// lookaround subprograms.
	NumLoops int

	// Names maps group names to group indices.
	Names map[string]int

	// Flags is the flag set the pattern was compiled with.
	Flags syntax.Flags

	// Pattern is the source text, kept for error reporting.
	Pattern string
}

// NumSlots returns the size of the slot array a Backtracker needs:
// a start/end pair per group (including group 0) plus the loop marks.
func (p *Program) NumSlots() int {
	return 2*(p.NumGroups+1) + p.NumLoops
}

// String returns a readable disassembly, one instruction per line.
// Intended for debugging and tests.
func (p *Program) String() string {
	var b strings.Builder
	for i, inst := range p.Insts {
		fmt.Fprintf(&b, "%3d: %s\n", i, inst.String())
	}
	return b.String()
}

// String returns a readable rendering of a single instruction.
func (i Inst) String() string {
	switch i.Op {
	case OpChar:
		return fmt.Sprintf("char %q", i.R)
	case OpClass:
		return fmt.Sprintf("class %v", *i.Set)
	case OpAny:
		if i.DotAll {
			return "any"
		}
		return "any (not nl)"
	case OpJmp:
		return fmt.Sprintf("jmp %d", i.Out)
	case OpSplit:
		return fmt.Sprintf("split %d, %d", i.Out, i.Out1)
	case OpSave:
		return fmt.Sprintf("save %d", i.Slot)
	case OpAssert:
		return fmt.Sprintf("assert %d", i.Assert)
	case OpBackref:
		return fmt.Sprintf("backref %d", i.Slot)
	case OpLook:
		kind := "ahead"
		if i.Behind {
			kind = fmt.Sprintf("behind %d", i.Width)
		}
		if i.Negate {
			kind = "not " + kind
		}
		return "look " + kind
	case OpCond:
		return fmt.Sprintf("cond %d -> %d, %d", i.Slot, i.Out, i.Out1)
	case OpMark:
		return fmt.Sprintf("mark %d", i.Slot)
	case OpEndLoop:
		return fmt.Sprintf("endloop %d, %d", i.Slot, i.Out)
	case OpMatch:
		return "match"
	}
	return "?"
}
