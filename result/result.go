package result

import (
	"time"

	"github.com/vk/mzngo/protocol"
	"github.com/zclconf/go-cty/cty"
)

// Result is the outcome of a solving session. Solutions are in discovery
// order; for optimisation problems the last one is the best known.
type Result struct {
	Status     Status
	Solutions  []*Solution
	Statistics Statistics
	Warnings   []protocol.Warning
	// Errors holds non-fatal problems, including solutions that could not
	// be decoded.
	Errors []error
	// Err is the fatal error that ended the session, if any.
	Err     error
	Elapsed time.Duration
}

// Last returns the most recent solution, or nil.
func (r *Result) Last() *Solution {
	if len(r.Solutions) == 0 {
		return nil
	}
	return r.Solutions[len(r.Solutions)-1]
}

// Objective returns the objective of the last solution.
func (r *Result) Objective() (cty.Value, bool) {
	if last := r.Last(); last != nil {
		return last.Objective()
	}
	return cty.NilVal, false
}

// HasSolution reports whether at least one solution was found.
func (r *Result) HasSolution() bool {
	return len(r.Solutions) > 0
}
