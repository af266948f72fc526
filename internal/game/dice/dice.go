// Package dice provides the injectable randomness used by stochastic
// resolutions (disengage and escape rolls).
package dice

import "fmt"

// Source is the randomness provider for rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Check is the audit record of one percentile check.
//
// Postcondition: Success == (Roll <= Chance).
type Check struct {
	Label   string  // what was rolled for, e.g. "disengage"
	Chance  float64 // success chance in percent
	Roll    int     // d100 result in [1, 100]
	Success bool
}

// String returns an audit string such as "disengage d100=37 vs 70% -> success".
func (c Check) String() string {
	outcome := "failure"
	if c.Success {
		outcome = "success"
	}
	return fmt.Sprintf("%s d100=%d vs %g%% -> %s", c.Label, c.Roll, c.Chance, outcome)
}
