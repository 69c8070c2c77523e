package vm

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coregx/retrace/syntax"
)

func mustParse(t *testing.T, pattern string, flags syntax.Flags) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse(pattern, flags)
	if err != nil {
		t.Fatalf("Parse(%q): %v", pattern, err)
	}
	return tree
}

func mustCompile(t *testing.T, pattern string, flags syntax.Flags) *Program {
	t.Helper()
	prog, err := Compile(mustParse(t, pattern, flags), DefaultConfig())
	if err != nil {
		t.Fatalf("Compile(%q): %v", pattern, err)
	}
	return prog
}

// TestCompileBasic tests that supported constructs lower without error.
func TestCompileBasic(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		flags   syntax.Flags
	}{
		{"literal", "abc", 0},
		{"class", "[a-z]+", 0},
		{"any", "a.c", 0},
		{"alternation", "foo|bar|baz", 0},
		{"nested groups", "((a)(b(c)))", 0},
		{"named group", `(?P<word>\w+)`, 0},
		{"counted", "a{2,5}", 0},
		{"backref", `(\w+) \1`, 0},
		{"lookahead", "a(?=b)", 0},
		{"lookbehind", "(?<=a)b", 0},
		{"conditional", `(<)?\w+(?(1)>)`, 0},
		{"empty-capable star", "(a*)*b", 0},
		{"flags", `^item$`, syntax.IgnoreCase | syntax.MultiLine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustCompile(t, tt.pattern, tt.flags)
			if len(prog.Insts) == 0 {
				t.Fatal("empty program")
			}
			last := prog.Insts[len(prog.Insts)-1]
			if last.Op != OpMatch {
				t.Errorf("last instruction = %v, want match", last.Op)
			}
		})
	}
}

// TestCompileDeterministic tests that compiling the same pattern twice
// yields the same program.
func TestCompileDeterministic(t *testing.T) {
	patterns := []string{
		"abc",
		`(\w+)@(\w+)\.(com|org)`,
		`(?P<q>["']).*?(?P=q)`,
		"(a|b)*c{2,7}",
	}

	for _, pattern := range patterns {
		t.Run(pattern, func(t *testing.T) {
			a := mustCompile(t, pattern, 0)
			b := mustCompile(t, pattern, 0)
			if diff := cmp.Diff(a.String(), b.String()); diff != "" {
				t.Errorf("programs differ (-first +second):\n%s", diff)
			}
		})
	}
}

// TestCompileSizeLimit tests that unrolled repetition respects the
// program size cap.
func TestCompileSizeLimit(t *testing.T) {
	config := DefaultConfig()
	config.MaxProgramSize = 16

	_, err := Compile(mustParse(t, "a{100}", 0), config)
	if err == nil {
		t.Fatal("Compile succeeded, want size limit error")
	}
	var cerr *CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("error type %T, want *CompileError", err)
	}
	if !errors.Is(err, ErrTooComplex) {
		t.Errorf("error does not wrap ErrTooComplex: %v", err)
	}
}

// TestCompileGroupSlots tests the slot layout of capturing groups.
func TestCompileGroupSlots(t *testing.T) {
	prog := mustCompile(t, "(a)(b)", 0)
	if prog.NumGroups != 2 {
		t.Fatalf("NumGroups = %d, want 2", prog.NumGroups)
	}
	if got := prog.NumSlots(); got != 6 {
		t.Errorf("NumSlots() = %d, want 6", got)
	}

	var saves []int
	for _, inst := range prog.Insts {
		if inst.Op == OpSave {
			saves = append(saves, inst.Slot)
		}
	}
	want := []int{0, 2, 3, 4, 5, 1}
	if diff := cmp.Diff(want, saves); diff != "" {
		t.Errorf("save slot order mismatch (-want +got):\n%s", diff)
	}
}

// TestCompileLoopGuard tests that a star over an empty-capable body gets
// a mark/end-loop pair and allocates a loop slot.
func TestCompileLoopGuard(t *testing.T) {
	prog := mustCompile(t, "(a*)*b", 0)
	if prog.NumLoops == 0 {
		t.Fatal("no loop slots allocated")
	}

	var marks, ends int
	for _, inst := range prog.Insts {
		switch inst.Op {
		case OpMark:
			marks++
		case OpEndLoop:
			ends++
		}
	}
	if marks == 0 || marks != ends {
		t.Errorf("marks = %d, endloops = %d, want equal and nonzero", marks, ends)
	}
}

// TestCompileScopedFlags tests that inline flag groups bake into the
// covered instructions only.
func TestCompileScopedFlags(t *testing.T) {
	prog := mustCompile(t, "a(?i:b)c", 0)

	var folded []rune
	for _, inst := range prog.Insts {
		if inst.Op == OpChar && inst.Fold {
			folded = append(folded, inst.R)
		}
	}
	if diff := cmp.Diff([]rune{'b'}, folded); diff != "" {
		t.Errorf("folded chars mismatch (-want +got):\n%s", diff)
	}
}

// TestCompileLookaroundSub tests that lookarounds compile into nested
// fragments ending in a match instruction.
func TestCompileLookaroundSub(t *testing.T) {
	prog := mustCompile(t, "(?<=USD)(?P<amount>\\d+)", 0)

	var look *Inst
	for i := range prog.Insts {
		if prog.Insts[i].Op == OpLook {
			look = &prog.Insts[i]
			break
		}
	}
	if look == nil {
		t.Fatal("no look instruction")
	}
	if !look.Behind || look.Negate {
		t.Errorf("look flags Behind=%v Negate=%v, want Behind only", look.Behind, look.Negate)
	}
	if look.Width != 3 {
		t.Errorf("Width = %d, want 3", look.Width)
	}
	sub := look.Sub.Insts
	if len(sub) == 0 || sub[len(sub)-1].Op != OpMatch {
		t.Error("lookaround fragment does not end in match")
	}
}

// TestConfigValidate tests per-field configuration validation.
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantField string
	}{
		{"defaults", DefaultConfig(), ""},
		{"steps too low", Config{MaxSteps: 999, MaxProgramSize: 10_000}, "MaxSteps"},
		{"steps too high", Config{MaxSteps: 2_000_000_000, MaxProgramSize: 10_000}, "MaxSteps"},
		{"program size too low", Config{MaxSteps: 1_000_000, MaxProgramSize: 8}, "MaxProgramSize"},
		{"program size too high", Config{MaxSteps: 1_000_000, MaxProgramSize: 2_000_000}, "MaxProgramSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var cerr *ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("error type %T, want *ConfigError", err)
			}
			if cerr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", cerr.Field, tt.wantField)
			}
		})
	}
}
