// Package mznerr defines the error taxonomy shared by the solving session
// layers: pre-flight configuration failures, value decoding mismatches,
// model-level errors reported by the driver and bare process failures.
package mznerr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for errors.Is. Every typed error below matches exactly one.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrModel         = errors.New("model error")
	ErrProcess       = errors.New("process failure")
	ErrCancelled     = errors.New("session cancelled")
)

// ConfigurationError reports a capability or option mismatch. It is always
// raised before a process is spawned.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Message }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configurationf builds a ConfigurationError from a format string.
func Configurationf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

// TypeMismatch is returned by the value codec when the incoming structural
// shape does not match the declared type.
type TypeMismatch struct {
	// Path locates the offending value, e.g. "q[3]" or "cfg.weight".
	Path     string
	Expected string
	Got      string
}

func (e *TypeMismatch) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Got)
	}
	return fmt.Sprintf("type mismatch at %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

func (e *TypeMismatch) Is(target error) bool { return target == ErrTypeMismatch }

// ModelKind classifies model-level errors reported by the external tool.
type ModelKind int

const (
	GenericError ModelKind = iota
	SyntaxError
	TypeError
	IncludeError
	CyclicIncludeError
	EvaluationError
	AssertionError
)

func (k ModelKind) String() string {
	switch k {
	case SyntaxError:
		return "syntax error"
	case TypeError:
		return "type error"
	case IncludeError:
		return "include error"
	case CyclicIncludeError:
		return "cyclic include error"
	case EvaluationError:
		return "evaluation error"
	case AssertionError:
		return "assertion failed"
	default:
		return "error"
	}
}

// KindFromWhat maps the "what" field of a structured error record to a kind.
func KindFromWhat(what string) ModelKind {
	switch what {
	case "syntax error":
		return SyntaxError
	case "type error":
		return TypeError
	case "include error":
		return IncludeError
	case "cyclic include error":
		return CyclicIncludeError
	case "evaluation error":
		return EvaluationError
	case "assertion failed":
		return AssertionError
	default:
		return GenericError
	}
}

// Location is a source position inside a model file.
type Location struct {
	File        string
	FirstLine   int
	LastLine    int
	FirstColumn int
	LastColumn  int
}

func (l *Location) String() string {
	var b strings.Builder
	b.WriteString(l.File)
	fmt.Fprintf(&b, ":%d", l.FirstLine)
	if l.LastLine > l.FirstLine {
		fmt.Fprintf(&b, "-%d", l.LastLine)
	}
	if l.FirstColumn > 0 {
		fmt.Fprintf(&b, ".%d-%d", l.FirstColumn, l.LastColumn)
	}
	return b.String()
}

// ModelError is an error the driver reported about the model itself.
type ModelError struct {
	Kind     ModelKind
	Message  string
	Location *Location
}

func (e *ModelError) Error() string {
	if e.Location != nil {
		return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ModelError) Is(target error) bool { return target == ErrModel }

// ProcessFailure is a failed driver run that produced no structured error:
// a non-zero exit, or an ERROR status reported with exit code 0.
type ProcessFailure struct {
	ExitCode int
	Stderr   string
}

func (e *ProcessFailure) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if e.ExitCode == 0 {
		if msg == "" {
			return "driver reported an ERROR status without an error message"
		}
		return "driver reported an ERROR status: " + msg
	}
	if msg == "" {
		return fmt.Sprintf("driver exited with code %d without an error message", e.ExitCode)
	}
	return fmt.Sprintf("driver exited with code %d: %s", e.ExitCode, msg)
}

func (e *ProcessFailure) Is(target error) bool { return target == ErrProcess }
