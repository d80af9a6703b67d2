package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/model"
	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/result"
	"github.com/vk/mzngo/solver"
)

// CheckTimeout bounds each re-solve done by CheckSolution.
const CheckTimeout = 5 * time.Second

// CheckResult verifies solutions of res with CheckSolution. indices select
// the solutions to check, negative ones counting from the end; by default
// only the last solution is checked. A result without solutions checks
// nothing and passes.
func CheckResult(ctx context.Context, drv *driver.Driver, m *model.Model, res *result.Result, cfg *solver.Config, indices ...int) (bool, error) {
	if len(res.Solutions) == 0 {
		return true, nil
	}
	if len(indices) == 0 {
		indices = []int{-1}
	}
	for _, i := range indices {
		j := i
		if j < 0 {
			j += len(res.Solutions)
		}
		if j < 0 || j >= len(res.Solutions) {
			return false, fmt.Errorf("solution index %d out of range: the result has %d solutions", i, len(res.Solutions))
		}
		ok, err := CheckSolution(ctx, drv, m, res.Solutions[j], res.Status, cfg)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// CheckSolution assigns the solution's output values to a branch of m and
// solves it again with cfg, usually a different solver than the one that
// found the solution. It reports whether that solve reaches a status
// compatible with status. Optimality is not checked.
//
// Model errors count as a failed check, unless status is itself
// result.Error. Configuration errors and cancellation are returned.
func CheckSolution(ctx context.Context, drv *driver.Driver, m *model.Model, sol *result.Solution, status result.Status, cfg *solver.Config, options ...Option) (bool, error) {
	var got result.Status
	var solveErr error
	err := m.Branch(func(child *model.Model) error {
		for _, name := range sol.Names() {
			switch name {
			case result.ObjectiveField, result.OutputItemField, result.CheckerField:
				continue
			}
			v, _ := sol.Get(name)
			if v.IsNull() {
				continue
			}
			if err := child.Assign(name, v); err != nil {
				return err
			}
		}
		res, err := Solve(ctx, drv, child, Options{Solver: cfg, Timeout: CheckTimeout}, options...)
		if res != nil {
			got = res.Status
		}
		solveErr = err
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checking solution %d: %w", sol.Index, err)
	}

	switch {
	case solveErr == nil:
	case errors.Is(solveErr, mznerr.ErrModel), errors.Is(solveErr, mznerr.ErrProcess), errors.Is(solveErr, mznerr.ErrTypeMismatch):
		return status == result.Error, nil
	default:
		return false, solveErr
	}
	return compatible(status, got), nil
}

// compatible reports whether a check that ended with got confirms a
// result that ended with want.
func compatible(want, got result.Status) bool {
	if want == got {
		return true
	}
	switch got {
	case result.Satisfied, result.OptimalSolution:
		switch want {
		case result.Satisfied, result.OptimalSolution, result.AllSolutions:
			return true
		}
	}
	return false
}
