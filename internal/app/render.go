package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/vk/mzngo/result"
	"github.com/vk/mzngo/solver"
	"gopkg.in/yaml.v3"
)

// report is the machine-readable rendering of a result.
type report struct {
	Status     string           `json:"status" yaml:"status"`
	Solutions  []map[string]any `json:"solutions" yaml:"solutions"`
	Statistics map[string]any   `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Warnings   []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors     []string         `json:"errors,omitempty" yaml:"errors,omitempty"`
	Error      string           `json:"error,omitempty" yaml:"error,omitempty"`
	ElapsedMS  int64            `json:"elapsed_ms" yaml:"elapsed_ms"`
}

func newReport(res *result.Result) (*report, error) {
	r := &report{
		Status:    res.Status.String(),
		Solutions: make([]map[string]any, 0, len(res.Solutions)),
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	for _, sol := range res.Solutions {
		fields, err := sol.Map()
		if err != nil {
			return nil, fmt.Errorf("rendering solution %d: %w", sol.Index+1, err)
		}
		r.Solutions = append(r.Solutions, fields)
	}
	if len(res.Statistics) > 0 {
		r.Statistics = make(map[string]any, len(res.Statistics))
		for _, k := range res.Statistics.Keys() {
			v := res.Statistics[k]
			if d, ok := v.(time.Duration); ok {
				v = d.Seconds()
			}
			r.Statistics[k] = v
		}
	}
	for _, w := range res.Warnings {
		r.Warnings = append(r.Warnings, w.Message)
	}
	for _, e := range res.Errors {
		r.Errors = append(r.Errors, e.Error())
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r, nil
}

// renderResult writes res in the given output format. The text format
// mimics the driver's own: solutions separated by dashes, a status line at
// the end.
func renderResult(w io.Writer, format string, res *result.Result) error {
	switch format {
	case "json", "yaml":
		r, err := newReport(res)
		if err != nil {
			return err
		}
		return encode(w, format, r)
	}

	for _, sol := range res.Solutions {
		text := sol.String()
		fmt.Fprint(w, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, "----------")
	}
	switch res.Status {
	case result.AllSolutions, result.OptimalSolution:
		fmt.Fprintln(w, "==========")
	case result.Satisfied:
	default:
		fmt.Fprintf(w, "=====%s=====\n", res.Status)
	}
	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "%% warning: %s\n", warning.Message)
	}
	return nil
}

type solverEntry struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Version string   `json:"version" yaml:"version"`
	Tags    []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Flags   []string `json:"std_flags,omitempty" yaml:"std_flags,omitempty"`
}

func renderSolvers(w io.Writer, format string, configs []*solver.Config) error {
	entries := make([]solverEntry, len(configs))
	for i, c := range configs {
		entries[i] = solverEntry{ID: c.ID, Name: c.Name, Version: c.Version, Tags: c.Tags, Flags: c.StdFlags}
	}
	if format == "json" || format == "yaml" {
		return encode(w, format, entries)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tTAGS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Version, strings.Join(e.Tags, ","))
	}
	return tw.Flush()
}

func encode(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
