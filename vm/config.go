package vm

// Config controls compilation and execution limits.
//
// A compiled Program embeds no limits itself; the limits travel with the
// Backtracker executing it, so the same Program can be run under
// different budgets.
//
// Example:
//
//	config := vm.DefaultConfig()
//	config.MaxSteps = 100_000 // tighter budget for untrusted patterns
type Config struct {
	// MaxSteps caps the number of instructions executed during a single
	// match attempt, including backtracked ones. Exceeding it aborts the
	// attempt with a *LimitError.
	// Default: 1,000,000
	MaxSteps int

	// MaxProgramSize caps the number of instructions a pattern may
	// compile to. Counted repetitions are unrolled, so this bounds the
	// expansion of patterns like (ab){1,500}.
	// Default: 10,000
	MaxProgramSize int
}

// DefaultConfig returns a configuration with sensible defaults.
//
// The step budget is generous enough for ordinary patterns on ordinary
// inputs; patterns that trip it are almost always exhibiting exponential
// backtracking.
func DefaultConfig() Config {
	return Config{
		MaxSteps:       1_000_000,
		MaxProgramSize: 10_000,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any parameter is out of range.
//
// Valid ranges:
//   - MaxSteps: 1,000 to 1,000,000,000
//   - MaxProgramSize: 16 to 1,000,000
func (c Config) Validate() error {
	if c.MaxSteps < 1_000 || c.MaxSteps > 1_000_000_000 {
		return &ConfigError{
			Field:   "MaxSteps",
			Message: "must be between 1,000 and 1,000,000,000",
		}
	}
	if c.MaxProgramSize < 16 || c.MaxProgramSize > 1_000_000 {
		return &ConfigError{
			Field:   "MaxProgramSize",
			Message: "must be between 16 and 1,000,000",
		}
	}
	return nil
}

// ConfigError represents an invalid configuration parameter.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "retrace: invalid config: " + e.Field + ": " + e.Message
}
