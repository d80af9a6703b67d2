package result

import (
	"time"

	"github.com/vk/mzngo/protocol"
)

// Assembler folds events into a Result. Events after EndOfStream are
// dropped. It is not safe for concurrent use; a session feeds it from a
// single goroutine.
type Assembler struct {
	decoder *Decoder
	res     Result
	checker string
	done    bool
}

// NewAssembler starts an empty result.
func NewAssembler(d *Decoder) *Assembler {
	return &Assembler{decoder: d, res: Result{Statistics: Statistics{}}}
}

// Apply consumes one event. It returns the solution the event produced, if
// any, and the decode error if the solution was rejected.
func (a *Assembler) Apply(ev protocol.Event) (*Solution, error) {
	if a.done {
		return nil, nil
	}
	switch e := ev.(type) {
	case protocol.SolutionFound:
		checker := a.checker
		a.checker = ""
		sol, err := a.decoder.Decode(e, checker)
		if err != nil {
			a.res.Errors = append(a.res.Errors, err)
			return nil, err
		}
		a.res.Solutions = append(a.res.Solutions, sol)
		a.res.Status = Merge(a.res.Status, Satisfied)
		if e.HasTime {
			a.res.Statistics["time"] = e.Time
		}
		return sol, nil

	case protocol.StatusChanged:
		a.res.Status = Merge(a.res.Status, FromToken(e.Token))
		if e.Time > 0 {
			a.res.Statistics["time"] = e.Time
		}

	case protocol.StatisticRecord:
		a.res.Statistics.Set(e.Key, e.Value)

	case protocol.Warning:
		a.res.Warnings = append(a.res.Warnings, e)

	case protocol.Error:
		if !e.Fatal {
			a.res.Errors = append(a.res.Errors, e.Err)
			break
		}
		if a.res.Err == nil {
			a.res.Err = e.Err
		}
		a.res.Status = Merge(a.res.Status, Error)

	case protocol.Checker:
		a.checker = e.Text

	case protocol.EndOfStream:
		a.done = true
	}
	return nil, nil
}

// Status returns the status reached so far.
func (a *Assembler) Status() Status { return a.res.Status }

// Done reports whether EndOfStream was applied.
func (a *Assembler) Done() bool { return a.done }

// SetElapsed records the wall-clock duration of the session.
func (a *Assembler) SetElapsed(d time.Duration) { a.res.Elapsed = d }

// Result returns a snapshot of the result so far.
func (a *Assembler) Result() *Result {
	r := a.res
	r.Solutions = append([]*Solution(nil), a.res.Solutions...)
	r.Warnings = append([]protocol.Warning(nil), a.res.Warnings...)
	r.Errors = append([]error(nil), a.res.Errors...)
	r.Statistics = a.res.Statistics.clone()
	return &r
}
