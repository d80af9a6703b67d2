package protocol

import (
	"fmt"
	"time"

	"github.com/vk/mzngo/mznerr"
)

// Event is one element of a session's ordered event sequence.
type Event interface {
	event()
}

// SolutionFound carries one solution's raw output fields. Numbers are
// json.Number; the values still need type-directed decoding.
type SolutionFound struct {
	// Index is the 0-based discovery order within the session.
	Index  int
	Fields map[string]any
	// Sections holds the non-JSON output sections (e.g. "dzn", "raw").
	Sections map[string]string
	Time     time.Duration
	HasTime  bool
}

// StatusChanged reports a status token from the fixed vocabulary.
type StatusChanged struct {
	Token Token
	Time  time.Duration
}

// StatisticRecord is one statistic. Value is a string, json.Number, bool or
// time.Duration as it arrived.
type StatisticRecord struct {
	Key   string
	Value any
}

// Warning is a non-fatal diagnostic.
type Warning struct {
	Message  string
	Location *mznerr.Location
}

// Error is a diagnostic reported by the driver. Fatal errors end the
// session with an error status.
type Error struct {
	Err   error
	Fatal bool
}

// Checker is solution checker output; it belongs to the next solution.
type Checker struct {
	Text string
}

// Comment is a free-form comment line or record.
type Comment struct {
	Text string
}

// EndOfStream is the last event of every session.
type EndOfStream struct {
	ExitCode int
}

func (SolutionFound) event()   {}
func (StatusChanged) event()   {}
func (StatisticRecord) event() {}
func (Warning) event()         {}
func (Error) event()           {}
func (Checker) event()         {}
func (Comment) event()         {}
func (EndOfStream) event()     {}

func (e SolutionFound) String() string   { return fmt.Sprintf("solution #%d", e.Index+1) }
func (e StatusChanged) String() string   { return "status " + string(e.Token) }
func (e StatisticRecord) String() string { return fmt.Sprintf("statistic %s=%v", e.Key, e.Value) }
func (e Warning) String() string         { return "warning: " + e.Message }
func (e Error) String() string           { return "error: " + e.Err.Error() }
func (e EndOfStream) String() string     { return fmt.Sprintf("end of stream (exit %d)", e.ExitCode) }

// Token is a final status token.
type Token string

const (
	TokenError            Token = "ERROR"
	TokenUnknown          Token = "UNKNOWN"
	TokenUnbounded        Token = "UNBOUNDED"
	TokenUnsatOrUnbounded Token = "UNSAT_OR_UNBOUNDED"
	TokenUnsatisfiable    Token = "UNSATISFIABLE"
	TokenSatisfied        Token = "SATISFIED"
	TokenAllSolutions     Token = "ALL_SOLUTIONS"
	TokenOptimal          Token = "OPTIMAL_SOLUTION"
)

// ParseToken accepts the tokens of both framings; "OPTIMAL" is an alias of
// OPTIMAL_SOLUTION.
func ParseToken(s string) (Token, bool) {
	switch t := Token(s); t {
	case TokenError, TokenUnknown, TokenUnbounded, TokenUnsatOrUnbounded,
		TokenUnsatisfiable, TokenSatisfied, TokenAllSolutions, TokenOptimal:
		return t, true
	case "OPTIMAL":
		return TokenOptimal, true
	case "UNSATorUNBOUNDED":
		return TokenUnsatOrUnbounded, true
	}
	return "", false
}

// Method is the solving method of a model.
type Method int

const (
	Satisfy Method = iota
	Minimize
	Maximize
)

// ParseMethod reads the "method" field of an interface record.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "sat":
		return Satisfy, nil
	case "min":
		return Minimize, nil
	case "max":
		return Maximize, nil
	}
	return Satisfy, fmt.Errorf("unknown method %q, valid options are 'sat', 'min', or 'max'", s)
}

func (m Method) String() string {
	switch m {
	case Minimize:
		return "minimize"
	case Maximize:
		return "maximize"
	default:
		return "satisfy"
	}
}
