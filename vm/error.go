// Package vm lowers a parsed pattern into a linear instruction program
// and executes it with a backtracking virtual machine.
//
// The machine is a depth-first search over the program driven by an
// explicit choice-point stack, so deeply nested quantifiers and groups
// cannot overflow the goroutine stack. Capture slots and loop marks are
// restored on backtracking through an undo journal. A configurable step
// ceiling bounds pathological backtracking.
package vm

import (
	"errors"
	"fmt"
)

// Common compilation errors
var (
	// ErrTooComplex indicates the pattern expands past the configured
	// program size limit
	ErrTooComplex = errors.New("pattern too complex")

	// ErrInvalidConfig indicates invalid configuration was provided
	ErrInvalidConfig = errors.New("invalid vm configuration")
)

// CompileError wraps a lowering failure with the offending pattern.
// Apart from ErrTooComplex, a CompileError signals an internal defect
// (for example a capture slot collision), not bad user input.
type CompileError struct {
	Pattern string
	Err     error
}

// Error implements the error interface
func (e *CompileError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("compilation failed for pattern %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("compilation failed: %v", e.Err)
}

// Unwrap returns the underlying error
func (e *CompileError) Unwrap() error {
	return e.Err
}

// LimitError reports that a match attempt was aborted because it reached
// the configured step ceiling. It is distinct from an ordinary non-match
// so callers can tell "no match" from "gave up".
type LimitError struct {
	Steps int
}

// Error implements the error interface
func (e *LimitError) Error() string {
	return fmt.Sprintf("backtracking limit exceeded after %d steps", e.Steps)
}
