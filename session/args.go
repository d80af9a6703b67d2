package session

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/protocol"
	"github.com/vk/mzngo/solver"
)

// checkCapabilities rejects options the solver cannot honour.
func checkCapabilities(cfg *solver.Config, o Options) error {
	if o.AllSolutions && o.NrSolutions > 0 {
		return mznerr.Configurationf("the number of solutions cannot be limited when looking for all solutions")
	}
	need := func(wanted bool, what string, flags ...string) error {
		if !wanted {
			return nil
		}
		for _, f := range flags {
			if cfg.Supports(f) {
				return nil
			}
		}
		return mznerr.Configurationf("solver %q does not support %s (needs %s)", cfg.ID, what, strings.Join(flags, " or "))
	}
	checks := []error{
		need(o.AllSolutions, "all solutions", solver.FlagAllSolutions),
		need(o.NrSolutions > 0, "a number of solutions", solver.FlagNrSolutions),
		need(o.IntermediateSolutions, "intermediate solutions", solver.FlagIntermediateSolutions, solver.FlagAllSolutions),
		need(o.Threads > 0, "parallel threads", solver.FlagThreads),
		need(o.Seed != nil, "a random seed", solver.FlagRandomSeed),
		need(o.FreeSearch, "free search", solver.FlagFreeSearch),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// checkMethod rejects solution counts on optimisation problems.
func checkMethod(method protocol.Method, o Options) error {
	if method == protocol.Satisfy {
		return nil
	}
	if o.AllSolutions {
		return mznerr.Configurationf("finding all optimal solutions of a %s problem is not supported", method)
	}
	if o.NrSolutions > 0 {
		return mznerr.Configurationf("finding multiple optimal solutions of a %s problem is not supported", method)
	}
	return nil
}

// buildArgs renders the driver flags for o, without the input files.
func buildArgs(o Options) []string {
	args := []string{
		"--output-mode", "json",
		"--output-time",
		"--output-objective",
		"--output-output-item",
		"--statistics",
	}
	if o.IntermediateSolutions {
		args = append(args, "--intermediate-solutions")
	}
	switch {
	case o.AllSolutions:
		args = append(args, "--all-solutions")
	case o.NrSolutions > 0:
		args = append(args, "--num-solutions", strconv.Itoa(o.NrSolutions))
	}
	if o.Threads > 0 {
		args = append(args, "--parallel", strconv.Itoa(o.Threads))
	}
	if o.Seed != nil {
		args = append(args, "--random-seed", strconv.FormatInt(*o.Seed, 10))
	}
	if o.FreeSearch {
		args = append(args, "--free-search")
	}
	if o.OptimisationLevel != nil {
		args = append(args, "-O", strconv.Itoa(*o.OptimisationLevel))
	}
	if o.Timeout > 0 {
		args = append(args, "--time-limit", strconv.FormatInt(o.Timeout.Milliseconds(), 10))
	}
	if o.Verbose {
		args = append(args, "--verbose")
	}
	return append(args, extraArgs(o.Extra)...)
}

// extraArgs renders extra flags in name order.
func extraArgs(extra map[string]any) []string {
	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	var args []string
	for _, name := range names {
		flag := name
		if !strings.HasPrefix(flag, "-") {
			flag = "--" + flag
		}
		switch v := extra[name].(type) {
		case bool:
			if v {
				args = append(args, flag)
			}
		case nil:
			args = append(args, flag)
		default:
			args = append(args, flag, fmt.Sprint(v))
		}
	}
	return args
}
