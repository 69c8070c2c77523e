// Package retrace provides a backtracking regular-expression engine with
// Python re-style semantics.
//
// retrace supports what the stdlib regexp deliberately leaves out:
//   - Backreferences (`(\w+) \1`)
//   - Lookahead and lookbehind assertions (`(?=...)`, `(?<!...)`)
//   - Conditional groups (`(?(1)yes|no)`)
//   - Python-style flags: IGNORECASE, MULTILINE, DOTALL, VERBOSE, ASCII
//
// The price is the backtracking cost model: worst-case exponential time,
// bounded by a configurable step budget instead of the linear-time
// guarantee of an automaton engine.
//
// Basic usage:
//
//	// Compile a pattern
//	p, err := retrace.Compile(`(\w+)@(\w+)\.com`, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Leftmost match
//	m, err := p.Search("mail ada@lovelace.com today")
//	if m != nil {
//	    fmt.Println(m.Text())     // "ada@lovelace.com"
//	    fmt.Println(m.Group(1))   // "ada"
//	}
//
// Advanced usage:
//
//	// Custom configuration
//	config := retrace.DefaultConfig()
//	config.MaxSteps = 100_000
//	p, err := retrace.CompileWithConfig(`(a|b)+c`, retrace.MULTILINE, config)
//
// Patterns are immutable and safe for concurrent use; per-call match state
// is pooled internally.
package retrace

import (
	"sync"

	"github.com/coregx/retrace/prefilter"
	"github.com/coregx/retrace/syntax"
	"github.com/coregx/retrace/vm"
)

// Flags selects matching behavior at compile time. See the syntax
// package for the individual bits.
type Flags = syntax.Flags

// Flag constants, re-exported so callers rarely need the syntax package.
const (
	IGNORECASE = syntax.IgnoreCase
	MULTILINE  = syntax.MultiLine
	DOTALL     = syntax.DotAll
	VERBOSE    = syntax.Verbose
	ASCII      = syntax.ASCII
)

// Config controls compilation and matching limits. See vm.Config.
type Config = vm.Config

// DefaultConfig returns the configuration Compile uses.
func DefaultConfig() Config { return vm.DefaultConfig() }

// Pattern is a compiled regular expression.
//
// A Pattern is immutable and safe for concurrent use by multiple
// goroutines; each match call draws its machine from an internal pool.
type Pattern struct {
	prog *vm.Program
	cfg  Config
	pre  prefilter.Prefilter
	pool sync.Pool
}

// Compile parses a pattern under the given flags and lowers it into an
// executable program, using the default configuration.
//
// Example:
//
//	p, err := retrace.Compile(`(?P<word>\w+)`, retrace.IGNORECASE)
func Compile(pattern string, flags syntax.Flags) (*Pattern, error) {
	return CompileWithConfig(pattern, flags, DefaultConfig())
}

// CompileWithConfig is Compile with an explicit configuration. The
// configuration is validated first; limit violations surface as
// *vm.ConfigError.
func CompileWithConfig(pattern string, flags syntax.Flags, config Config) (*Pattern, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	tree, err := syntax.Parse(pattern, flags)
	if err != nil {
		return nil, err
	}
	prog, err := vm.Compile(tree, config)
	if err != nil {
		return nil, err
	}

	p := &Pattern{
		prog: prog,
		cfg:  config,
		pre:  prefilter.FromTree(tree),
	}
	p.pool.New = func() any {
		return vm.NewBacktracker(prog, config)
	}
	return p, nil
}

// MustCompile is Compile but panics on error. Intended for patterns known
// at build time.
func MustCompile(pattern string, flags syntax.Flags) *Pattern {
	p, err := Compile(pattern, flags)
	if err != nil {
		panic(`retrace: Compile(` + pattern + `): ` + err.Error())
	}
	return p
}

// String returns the source text of the pattern.
func (p *Pattern) String() string { return p.prog.Pattern }

// NumGroups returns the number of capturing groups, excluding group 0.
func (p *Pattern) NumGroups() int { return p.prog.NumGroups }

// GroupNames returns the named groups in group-index order.
func (p *Pattern) GroupNames() []string {
	byIndex := make(map[int]string, len(p.prog.Names))
	for name, idx := range p.prog.Names {
		byIndex[idx] = name
	}
	names := make([]string, 0, len(byIndex))
	for i := 1; i <= p.prog.NumGroups; i++ {
		if name, named := byIndex[i]; named {
			names = append(names, name)
		}
	}
	return names
}

func (p *Pattern) get() *vm.Backtracker  { return p.pool.Get().(*vm.Backtracker) }
func (p *Pattern) put(b *vm.Backtracker) { p.pool.Put(b) }
