package vm

import (
	"fmt"

	"github.com/coregx/retrace/syntax"
)

// Compile lowers a parsed Tree into an executable Program.
//
// Lowering is pure and deterministic: the same Tree and Config always
// produce an equivalent Program. Counted repetitions are unrolled;
// patterns whose expansion exceeds Config.MaxProgramSize fail with a
// CompileError wrapping ErrTooComplex.
//
// Example:
//
//	tree, _ := syntax.Parse(`(\w+)@(\w+)`, 0)
//	prog, err := vm.Compile(tree, vm.DefaultConfig())
func Compile(tree *syntax.Tree, config Config) (*Program, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &compiler{
		tree:    tree,
		maxSize: config.MaxProgramSize,
	}

	c.emit(Inst{Op: OpSave, Slot: 0})
	c.node(tree.Root, tree.Flags)
	c.emit(Inst{Op: OpSave, Slot: 1})
	c.emit(Inst{Op: OpMatch})

	if c.err != nil {
		return nil, c.err
	}

	prog := &Program{
		Insts:     c.insts,
		NumGroups: tree.Groups,
		NumLoops:  c.loops,
		Names:     tree.Names,
		Flags:     tree.Flags,
		Pattern:   tree.Pattern,
	}
	if err := verify(prog, prog.Insts); err != nil {
		return nil, err
	}
	return prog, nil
}

// compiler accumulates instructions for the program being built. Sub
// buffers are swapped in while compiling lookaround fragments; size and
// loop-slot counters span all buffers.
type compiler struct {
	tree    *syntax.Tree
	insts   []Inst
	size    int // instructions emitted across all buffers
	loops   int // loop slots allocated so far
	maxSize int
	err     error
}

// emit appends an instruction and returns its index. After the size
// limit is hit the compiler goes inert and only the sticky error
// survives.
func (c *compiler) emit(inst Inst) int {
	if c.err != nil {
		return len(c.insts)
	}
	if c.size >= c.maxSize {
		c.err = &CompileError{Pattern: c.tree.Pattern, Err: ErrTooComplex}
		return len(c.insts)
	}
	c.size++
	c.insts = append(c.insts, inst)
	return len(c.insts) - 1
}

// patch sets the Out field of a previously emitted instruction.
func (c *compiler) patch(idx int, out int) {
	if c.err != nil {
		return
	}
	c.insts[idx].Out = out
}

// patchAlt sets the Out1 field of a previously emitted instruction.
func (c *compiler) patchAlt(idx int, out int) {
	if c.err != nil {
		return
	}
	c.insts[idx].Out1 = out
}

// here returns the index the next instruction will get.
func (c *compiler) here() int { return len(c.insts) }

// allocLoop reserves a loop mark slot and returns its absolute index in
// the slot array, after the capture pairs.
func (c *compiler) allocLoop() int {
	slot := 2*(c.tree.Groups+1) + c.loops
	c.loops++
	return slot
}

// node emits the instructions for one AST node under the given flag set.
func (c *compiler) node(n syntax.Node, flags syntax.Flags) {
	if c.err != nil {
		return
	}

	fold := flags&syntax.IgnoreCase != 0
	ascii := flags&syntax.ASCII != 0

	switch t := n.(type) {
	case *syntax.Literal:
		c.emit(Inst{Op: OpChar, R: t.R, Fold: fold, ASCII: ascii})

	case *syntax.Class:
		c.emit(Inst{Op: OpClass, Set: &t.Set, Fold: fold, ASCII: ascii})

	case *syntax.AnyChar:
		c.emit(Inst{Op: OpAny, DotAll: flags&syntax.DotAll != 0})

	case *syntax.Concat:
		for _, child := range t.Nodes {
			c.node(child, flags)
		}

	case *syntax.Alternate:
		c.alternate(t.Nodes, flags)

	case *syntax.Repeat:
		c.repeat(t, flags)

	case *syntax.Group:
		sub := (flags | t.AddFlags) &^ t.DelFlags
		if t.Capturing {
			c.emit(Inst{Op: OpSave, Slot: 2 * t.Index})
			c.node(t.Node, sub)
			c.emit(Inst{Op: OpSave, Slot: 2*t.Index + 1})
		} else {
			c.node(t.Node, sub)
		}

	case *syntax.Backref:
		c.emit(Inst{Op: OpBackref, Slot: t.Index, Fold: fold, ASCII: ascii})

	case *syntax.Assert:
		c.emit(Inst{
			Op:        OpAssert,
			Assert:    t.AssertKind,
			MultiLine: flags&syntax.MultiLine != 0,
			ASCII:     ascii,
		})

	case *syntax.Look:
		c.look(t, flags)

	case *syntax.Cond:
		cond := c.emit(Inst{Op: OpCond, Slot: t.Group})
		c.patch(cond, c.here())
		c.node(t.Yes, flags)
		jmp := c.emit(Inst{Op: OpJmp})
		c.patchAlt(cond, c.here())
		if t.No != nil {
			c.node(t.No, flags)
		}
		c.patch(jmp, c.here())

	default:
		c.err = &CompileError{
			Pattern: c.tree.Pattern,
			Err:     fmt.Errorf("unhandled node kind %T", n),
		}
	}
}

// alternate compiles a|b|c as a right-leaning chain of splits, each
// preferring the earlier branch.
func (c *compiler) alternate(nodes []syntax.Node, flags syntax.Flags) {
	if len(nodes) == 0 {
		return
	}
	if len(nodes) == 1 {
		c.node(nodes[0], flags)
		return
	}

	split := c.emit(Inst{Op: OpSplit})
	c.patch(split, c.here())
	c.node(nodes[0], flags)
	jmp := c.emit(Inst{Op: OpJmp})
	c.patchAlt(split, c.here())
	c.alternate(nodes[1:], flags)
	c.patch(jmp, c.here())
}

// repeat compiles min required copies of the body followed by either an
// unbounded loop or a chain of optional copies.
func (c *compiler) repeat(t *syntax.Repeat, flags syntax.Flags) {
	for i := 0; i < t.Min; i++ {
		c.node(t.Node, flags)
	}

	if t.Max == syntax.Unbounded {
		c.star(t.Node, t.Greedy, flags)
		return
	}

	for i := 0; i < t.Max-t.Min; i++ {
		split := c.emit(Inst{Op: OpSplit})
		body := c.here()
		c.node(t.Node, flags)
		end := c.here()
		if t.Greedy {
			c.patch(split, body)
			c.patchAlt(split, end)
		} else {
			c.patch(split, end)
			c.patchAlt(split, body)
		}
	}
}

// star compiles an unbounded loop. A body that can match the empty
// string gets a mark/end-loop guard so an iteration that consumes no
// input exits the loop instead of spinning.
func (c *compiler) star(body syntax.Node, greedy bool, flags syntax.Flags) {
	if syntax.MinWidth(body) == 0 {
		slot := c.allocLoop()
		mark := c.emit(Inst{Op: OpMark, Slot: slot})
		split := c.emit(Inst{Op: OpSplit})
		bodyStart := c.here()
		c.node(body, flags)
		c.emit(Inst{Op: OpEndLoop, Slot: slot, Out: mark})
		end := c.here()
		if greedy {
			c.patch(split, bodyStart)
			c.patchAlt(split, end)
		} else {
			c.patch(split, end)
			c.patchAlt(split, bodyStart)
		}
		return
	}

	split := c.emit(Inst{Op: OpSplit})
	bodyStart := c.here()
	c.node(body, flags)
	c.emit(Inst{Op: OpJmp, Out: split})
	end := c.here()
	if greedy {
		c.patch(split, bodyStart)
		c.patchAlt(split, end)
	} else {
		c.patch(split, end)
		c.patchAlt(split, bodyStart)
	}
}

// look compiles a lookaround subpattern into a fragment program executed
// by OpLook as a nested attempt. The fragment shares the root program's
// capture and loop slots, which is what makes positive-lookahead
// captures visible to the rest of the match.
func (c *compiler) look(t *syntax.Look, flags syntax.Flags) {
	saved := c.insts
	c.insts = nil

	c.node(t.Node, flags)
	c.emit(Inst{Op: OpMatch})

	sub := &Program{
		Insts:   c.insts,
		Flags:   flags,
		Pattern: c.tree.Pattern,
	}
	c.insts = saved

	c.emit(Inst{
		Op:     OpLook,
		Sub:    sub,
		Negate: t.Negated,
		Behind: t.Behind,
		Width:  t.Width,
	})
}

// verify checks internal consistency of a finished program: jump targets
// in range and slot indices within the slot array. A violation is an
// implementation defect, reported as a CompileError.
func verify(root *Program, insts []Inst) error {
	numSlots := root.NumSlots()
	for pc, inst := range insts {
		switch inst.Op {
		case OpJmp, OpSplit, OpCond, OpEndLoop:
			if inst.Out < 0 || inst.Out > len(insts) {
				return &CompileError{
					Pattern: root.Pattern,
					Err:     fmt.Errorf("instruction %d: jump target %d out of range", pc, inst.Out),
				}
			}
			if inst.Op == OpSplit || inst.Op == OpCond {
				if inst.Out1 < 0 || inst.Out1 > len(insts) {
					return &CompileError{
						Pattern: root.Pattern,
						Err:     fmt.Errorf("instruction %d: branch target %d out of range", pc, inst.Out1),
					}
				}
			}
		case OpSave, OpMark:
			if inst.Slot < 0 || inst.Slot >= numSlots {
				return &CompileError{
					Pattern: root.Pattern,
					Err:     fmt.Errorf("instruction %d: slot %d out of range", pc, inst.Slot),
				}
			}
		case OpBackref:
			if inst.Slot < 1 || inst.Slot > root.NumGroups {
				return &CompileError{
					Pattern: root.Pattern,
					Err:     fmt.Errorf("instruction %d: group %d out of range", pc, inst.Slot),
				}
			}
		case OpLook:
			if err := verify(root, inst.Sub.Insts); err != nil {
				return err
			}
		}
	}
	return nil
}
