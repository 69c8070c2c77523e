package vm

import (
	"unicode/utf8"

	"github.com/coregx/retrace/syntax"
)

// Backtracker executes a Program against an input string with an
// explicit choice-point stack, so deeply nested quantifiers never touch
// the goroutine stack. A Backtracker is reusable across calls but not
// safe for concurrent use; callers pool them.
type Backtracker struct {
	prog  *Program
	cfg   Config
	input string

	// slots holds capture offsets and loop marks, -1 when unset.
	slots []int

	journal []journalEntry
	stack   []choicePoint
	steps   int
}

// choicePoint records an alternative to resume when the current path
// fails: resume at pc with the cursor at pos, after rolling the journal
// back to mark.
type choicePoint struct {
	pc   int
	pos  int
	mark int
}

// journalEntry remembers a slot's previous value so backtracking can
// restore it.
type journalEntry struct {
	slot int
	old  int
}

// NewBacktracker returns a machine for prog. The config must be the one
// the program was compiled with.
func NewBacktracker(prog *Program, cfg Config) *Backtracker {
	return &Backtracker{
		prog:  prog,
		cfg:   cfg,
		slots: make([]int, prog.NumSlots()),
	}
}

// Run attempts an anchored match of the program at start. If endTarget
// is non-negative the match must end exactly there, which is how full
// matches force the engine to backtrack into longer alternatives.
//
// On success Run returns the capture slots (a fresh slice of length
// 2*(NumGroups+1); unmatched groups hold -1). A nil slice with a nil
// error means no match. The step budget is charged per attempt; blowing
// it returns a *LimitError.
func (b *Backtracker) Run(input string, start, endTarget int) ([]int, error) {
	b.input = input
	b.steps = 0
	b.stack = b.stack[:0]
	b.journal = b.journal[:0]
	for i := range b.slots {
		b.slots[i] = -1
	}

	ok, err := b.match(b.prog, start, endTarget)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	caps := make([]int, 2*(b.prog.NumGroups+1))
	copy(caps, b.slots)
	return caps, nil
}

// match runs prog as one attempt starting at pos. Nested calls (from
// OpLook) share the slot array and journal with the root attempt but
// own the stack above their base, so a completed lookaround can never
// be backtracked into.
func (b *Backtracker) match(prog *Program, pos, endTarget int) (bool, error) {
	stackBase := len(b.stack)
	journalBase := len(b.journal)
	pc := 0

	for {
		b.steps++
		if b.steps > b.cfg.MaxSteps {
			return false, &LimitError{Steps: b.steps}
		}

		inst := &prog.Insts[pc]
		ok := true

		switch inst.Op {
		case OpChar:
			r, size := utf8.DecodeRuneInString(b.input[pos:])
			if size > 0 && (r == inst.R || (inst.Fold && foldEq(inst.R, r, inst.ASCII))) {
				pc++
				pos += size
			} else {
				ok = false
			}

		case OpClass:
			r, size := utf8.DecodeRuneInString(b.input[pos:])
			if size > 0 && matchClass(inst.Set, r, inst.Fold, inst.ASCII) {
				pc++
				pos += size
			} else {
				ok = false
			}

		case OpAny:
			r, size := utf8.DecodeRuneInString(b.input[pos:])
			if size > 0 && (inst.DotAll || r != '\n') {
				pc++
				pos += size
			} else {
				ok = false
			}

		case OpJmp:
			pc = inst.Out

		case OpSplit:
			b.stack = append(b.stack, choicePoint{pc: inst.Out1, pos: pos, mark: len(b.journal)})
			pc = inst.Out

		case OpSave, OpMark:
			b.journal = append(b.journal, journalEntry{slot: inst.Slot, old: b.slots[inst.Slot]})
			b.slots[inst.Slot] = pos
			pc++

		case OpEndLoop:
			// Loop again only if the iteration consumed input; an
			// empty iteration falls through and exits the loop.
			if pos > b.slots[inst.Slot] {
				pc = inst.Out
			} else {
				pc++
			}

		case OpAssert:
			if b.assert(inst, pos) {
				pc++
			} else {
				ok = false
			}

		case OpBackref:
			end, matched := b.backref(inst, pos)
			if matched {
				pos = end
				pc++
			} else {
				ok = false
			}

		case OpCond:
			if b.slots[2*inst.Slot] >= 0 && b.slots[2*inst.Slot+1] >= 0 {
				pc = inst.Out
			} else {
				pc = inst.Out1
			}

		case OpLook:
			matched, err := b.look(inst, pos)
			if err != nil {
				return false, err
			}
			if matched {
				pc++
			} else {
				ok = false
			}

		case OpMatch:
			if endTarget >= 0 && pos != endTarget {
				ok = false
			} else {
				b.stack = b.stack[:stackBase]
				return true, nil
			}
		}

		if ok {
			continue
		}

		// Backtrack to the most recent choice point, or give up.
		if len(b.stack) == stackBase {
			b.undo(journalBase)
			return false, nil
		}
		cp := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		b.undo(cp.mark)
		pc = cp.pc
		pos = cp.pos
	}
}

// undo rolls the journal back to mark, restoring every slot written
// since.
func (b *Backtracker) undo(mark int) {
	for i := len(b.journal) - 1; i >= mark; i-- {
		e := b.journal[i]
		b.slots[e.slot] = e.old
	}
	b.journal = b.journal[:mark]
}

// look evaluates a lookaround as a nested attempt. Captures made inside
// a successful positive lookaround stay visible; everything a failed or
// negated attempt touched is rolled back.
func (b *Backtracker) look(inst *Inst, pos int) (bool, error) {
	mark := len(b.journal)

	var matched bool
	if inst.Behind {
		if start, enough := stepBack(b.input, pos, inst.Width); enough {
			got, err := b.match(inst.Sub, start, pos)
			if err != nil {
				return false, err
			}
			matched = got
		}
	} else {
		got, err := b.match(inst.Sub, pos, -1)
		if err != nil {
			return false, err
		}
		matched = got
	}

	if inst.Negate {
		if matched {
			b.undo(mark)
		}
		return !matched, nil
	}
	return matched, nil
}

// backref matches the text captured by a group at the cursor. A group
// that never participated in the match cannot be matched, not even
// against the empty string.
func (b *Backtracker) backref(inst *Inst, pos int) (int, bool) {
	lo, hi := b.slots[2*inst.Slot], b.slots[2*inst.Slot+1]
	if lo < 0 || hi < 0 {
		return 0, false
	}
	ref := b.input[lo:hi]

	if !inst.Fold {
		if len(b.input)-pos < len(ref) || b.input[pos:pos+len(ref)] != ref {
			return 0, false
		}
		return pos + len(ref), true
	}

	for i := 0; i < len(ref); {
		want, wsize := utf8.DecodeRuneInString(ref[i:])
		got, gsize := utf8.DecodeRuneInString(b.input[pos:])
		if gsize == 0 || !foldEq(want, got, inst.ASCII) {
			return 0, false
		}
		i += wsize
		pos += gsize
	}
	return pos, true
}

// assert evaluates a zero-width position assertion at pos.
func (b *Backtracker) assert(inst *Inst, pos int) bool {
	s := b.input
	switch inst.Assert {
	case syntax.AssertBeginText:
		return pos == 0
	case syntax.AssertEndText:
		return pos == len(s)
	case syntax.AssertBeginLine:
		if pos == 0 {
			return true
		}
		return inst.MultiLine && s[pos-1] == '\n'
	case syntax.AssertEndLine:
		if pos == len(s) {
			return true
		}
		return inst.MultiLine && s[pos] == '\n'
	case syntax.AssertWordBoundary, syntax.AssertNonWordBoundary:
		before := false
		if pos > 0 {
			r, _ := utf8.DecodeLastRuneInString(s[:pos])
			before = isWordChar(r, inst.ASCII)
		}
		after := false
		if pos < len(s) {
			r, _ := utf8.DecodeRuneInString(s[pos:])
			after = isWordChar(r, inst.ASCII)
		}
		atBoundary := before != after
		if inst.Assert == syntax.AssertWordBoundary {
			return atBoundary
		}
		return !atBoundary
	}
	return false
}
