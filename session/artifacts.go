package session

import (
	"fmt"
	"os"
	"sync"

	"github.com/vk/mzngo/model"
	"github.com/vk/mzngo/solver"
)

// artifacts are the input files of one session, valid until release.
type artifacts struct {
	files     []string
	solverArg string

	cleanups []func()
	once     sync.Once
}

// materialise writes the rendered model's data and code into fresh
// temporary files and, when cfg is set, resolves the --solver argument.
// Nothing is left on disk when it fails.
func materialise(r model.Rendered, cfg *solver.Config, dir, prefix string) (_ *artifacts, err error) {
	a := &artifacts{files: append([]string(nil), r.Files...)}
	defer func() {
		if err != nil {
			a.release()
		}
	}()

	if len(r.Data) > 0 {
		name, err := a.write(dir, prefix+"_data_*.json", r.Data)
		if err != nil {
			return nil, err
		}
		a.files = append(a.files, name)
	}
	if r.NeedsFragment() {
		name, err := a.write(dir, prefix+"_fragment_*.mzn", []byte(r.Code))
		if err != nil {
			return nil, err
		}
		a.files = append(a.files, name)
	}
	if r.Checker != "" {
		a.files = append(a.files, r.Checker)
	}
	if cfg != nil {
		arg, cleanup, err := cfg.Materialise(dir)
		if err != nil {
			return nil, err
		}
		a.cleanups = append(a.cleanups, cleanup)
		a.solverArg = arg
	}
	return a, nil
}

func (a *artifacts) write(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating input file: %w", err)
	}
	name := f.Name()
	a.cleanups = append(a.cleanups, func() { _ = os.Remove(name) })
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return name, nil
}

// release removes every file written for the session. It is idempotent.
func (a *artifacts) release() {
	a.once.Do(func() {
		for _, c := range a.cleanups {
			c()
		}
	})
}
