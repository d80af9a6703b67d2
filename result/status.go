// Package result folds a session's event sequence into a Result: the final
// status, the typed solutions in discovery order and the solve statistics.
package result

import "github.com/vk/mzngo/protocol"

// Status is the outcome classification of a solving session.
type Status int

const (
	Unknown Status = iota
	Satisfied
	AllSolutions
	OptimalSolution
	Unsatisfiable
	Unbounded
	UnsatOrUnbounded
	Error
)

func (s Status) String() string {
	switch s {
	case Satisfied:
		return "SATISFIED"
	case AllSolutions:
		return "ALL_SOLUTIONS"
	case OptimalSolution:
		return "OPTIMAL_SOLUTION"
	case Unsatisfiable:
		return "UNSATISFIABLE"
	case Unbounded:
		return "UNBOUNDED"
	case UnsatOrUnbounded:
		return "UNSAT_OR_UNBOUNDED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// HasSolution reports whether the status implies at least one solution.
func (s Status) HasSolution() bool {
	return s == Satisfied || s == AllSolutions || s == OptimalSolution
}

// Terminal reports whether the status is a final classification that a
// later status may not replace (other than by Error).
func (s Status) Terminal() bool {
	switch s {
	case AllSolutions, OptimalSolution, Unsatisfiable, Unbounded, UnsatOrUnbounded, Error:
		return true
	}
	return false
}

// FromToken maps a protocol status token.
func FromToken(t protocol.Token) Status {
	switch t {
	case protocol.TokenSatisfied:
		return Satisfied
	case protocol.TokenAllSolutions:
		return AllSolutions
	case protocol.TokenOptimal:
		return OptimalSolution
	case protocol.TokenUnsatisfiable:
		return Unsatisfiable
	case protocol.TokenUnbounded:
		return Unbounded
	case protocol.TokenUnsatOrUnbounded:
		return UnsatOrUnbounded
	case protocol.TokenError:
		return Error
	default:
		return Unknown
	}
}

// Merge combines the current status with a newly reported one. Error always
// wins. A terminal status is never replaced otherwise. Satisfied is replaced
// by any terminal status, and Unknown never hides solutions already found.
func Merge(current, next Status) Status {
	switch {
	case next == Error:
		return Error
	case current.Terminal():
		return current
	case next == Unknown:
		return current
	default:
		return next
	}
}
