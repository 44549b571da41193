package scenario

import (
	"fmt"
	"log"
)

// AssertionMode controls whether failed expectations abort the run.
type AssertionMode int

const (
	// AssertionStrict fails the scenario on the first mismatch.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs mismatches and keeps running.
	AssertionLogOnly
)

// Assertions evaluates script expectations under the configured mode.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger
}

// EqualInt checks an integer expectation.
func (a Assertions) EqualInt(label string, want int64, got int64) error {
	if want == got {
		return nil
	}
	return a.fail("%s: want %d, got %d", label, want, got)
}

// EqualString checks a string expectation.
func (a Assertions) EqualString(label string, want string, got string) error {
	if want == got {
		return nil
	}
	return a.fail("%s: want %q, got %q", label, want, got)
}

// EqualBool checks a boolean expectation.
func (a Assertions) EqualBool(label string, want bool, got bool) error {
	if want == got {
		return nil
	}
	return a.fail("%s: want %v, got %v", label, want, got)
}

func (a Assertions) fail(format string, args ...any) error {
	if a.Mode == AssertionLogOnly {
		if a.Logger != nil {
			a.Logger.Printf("expectation failed: "+format, args...)
		}
		return nil
	}
	return fmt.Errorf(format, args...)
}
