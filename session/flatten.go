package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/internal/ctxlog"
	"github.com/vk/mzngo/model"
	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/protocol"
	"github.com/vk/mzngo/result"
	"github.com/vk/mzngo/solver"
)

// FlatOptions are the compiler flags of Flatten.
type FlatOptions struct {
	// Timeout is the compiler's time limit.
	Timeout time.Duration `validate:"gte=0"`
	// OptimisationLevel is the compiler's -O level.
	OptimisationLevel *int `validate:"omitempty,gte=0,lte=5"`
	// Extra are additional driver flags, handled as in Options.
	Extra map[string]any
}

// Flat is a model compiled for one solver. Its files exist until Close.
type Flat struct {
	// FZN is the FlatZinc model.
	FZN string
	// OZN is the output model that turns solver output back into the
	// model's output.
	OZN string
	// Statistics are the compiler's statistics.
	Statistics result.Statistics

	out *artifacts
}

// Close removes the compiled files.
func (f *Flat) Close() {
	f.out.release()
}

// Flatten compiles m for cfg into a FlatZinc model and its output model.
// The input files are removed before it returns; the outputs stay until
// Flat.Close.
func Flatten(ctx context.Context, drv *driver.Driver, m *model.Model, cfg *solver.Config, opts FlatOptions, options ...Option) (_ *Flat, err error) {
	if cfg == nil {
		return nil, mznerr.Configurationf("no solver configuration given")
	}
	if err := validate.Struct(opts); err != nil {
		return nil, mznerr.Configurationf("invalid flatten options: %v", err)
	}
	set := newSettings(options)
	if set.id == uuid.Nil {
		set.id = uuid.New()
	}
	prefix := "mzngo_" + set.id.String()[:8]
	log := ctxlog.FromContext(ctx)

	rendered, err := m.Clone().Render()
	if err != nil {
		return nil, err
	}
	in, err := materialise(rendered, nil, set.tempDir, prefix)
	if err != nil {
		return nil, err
	}
	defer in.release()

	out := &artifacts{}
	defer func() {
		if err != nil {
			out.release()
		}
	}()
	fzn, err := out.write(set.tempDir, prefix+"_*.fzn", nil)
	if err != nil {
		return nil, err
	}
	ozn, err := out.write(set.tempDir, prefix+"_*.ozn", nil)
	if err != nil {
		return nil, err
	}

	args := []string{"--compile", "--statistics", "--fzn", fzn, "--ozn", ozn}
	if opts.Timeout > 0 {
		args = append(args, "--time-limit", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout+set.slack)
		defer cancel()
	}
	if opts.OptimisationLevel != nil {
		args = append(args, "-O", strconv.Itoa(*opts.OptimisationLevel))
	}
	args = append(args, extraArgs(opts.Extra)...)
	args = append(args, in.files...)

	log.Debug("Flattening model.", "solver", cfg.ID, "fzn", fzn)
	res, err := drv.Run(ctx, args, cfg)
	if err != nil {
		return nil, fmt.Errorf("flattening model: %w", err)
	}
	stats, err := compilerStatistics(drv, res.Stdout, set.chunk)
	if err != nil {
		return nil, err
	}
	return &Flat{FZN: fzn, OZN: ozn, Statistics: stats, out: out}, nil
}

// compilerStatistics collects the statistic records of a compile run.
func compilerStatistics(drv *driver.Driver, stdout []byte, chunk int) (result.Statistics, error) {
	var dec interface {
		Next() (protocol.Event, error)
	}
	if drv.JSONStream() {
		dec = protocol.NewJSONStreamDecoder(bytes.NewReader(stdout), chunk)
	} else {
		dec = protocol.NewTextDecoder(bytes.NewReader(stdout), chunk, protocol.Satisfy)
	}
	stats := result.Statistics{}
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading compiler statistics: %w", err)
		}
		if rec, ok := ev.(protocol.StatisticRecord); ok {
			stats.Set(rec.Key, rec.Value)
		}
	}
}
