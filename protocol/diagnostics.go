package protocol

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/mzngo/mznerr"
)

var locationPattern = regexp.MustCompile(`([^\s]+):(\d+)(.(\d+)-(\d+))?:\s`)

// ClassifyStderr builds the error for a failed run from its error channel.
// Text naming a known error kind or a source location becomes a
// *mznerr.ModelError; anything else a *mznerr.ProcessFailure.
func ClassifyStderr(stderr []byte, exitCode int) error {
	kind := mznerr.GenericError
	switch {
	case bytes.Contains(stderr, []byte("MiniZinc: evaluation error:")):
		kind = mznerr.EvaluationError
		if bytes.Contains(stderr, []byte("Assertion failed:")) {
			kind = mznerr.AssertionError
		}
	case bytes.Contains(stderr, []byte("MiniZinc: type error:")):
		kind = mznerr.TypeError
	case bytes.Contains(stderr, []byte("Error: syntax error")):
		kind = mznerr.SyntaxError
	}

	loc := ParseLocation(string(stderr))
	msg := strings.TrimSpace(string(stderr))
	if msg == "" || (kind == mznerr.GenericError && loc == nil) {
		return &mznerr.ProcessFailure{ExitCode: exitCode, Stderr: msg}
	}
	if loc != nil {
		msg += snippet(loc)
	}
	return &mznerr.ModelError{Kind: kind, Message: msg, Location: loc}
}

// ParseLocation finds the first "file:line[.col-col]:" reference in text.
func ParseLocation(text string) *mznerr.Location {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	line, _ := strconv.Atoi(m[2])
	loc := &mznerr.Location{File: m[1], FirstLine: line, LastLine: line}
	if m[3] != "" {
		loc.FirstColumn, _ = strconv.Atoi(m[4])
		loc.LastColumn, _ = strconv.Atoi(m[5])
	}
	return loc
}

// ScanWarnings extracts "Warning:" diagnostics from the error channel, with
// the location printed on the line before when there is one.
func ScanWarnings(stderr []byte) []Warning {
	var out []Warning
	var prev string
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 4096), 1<<24)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Warning:"); ok {
			out = append(out, Warning{Message: strings.TrimSpace(rest), Location: ParseLocation(prev + " ")})
		}
		prev = line
	}
	return out
}

// snippet renders the referenced lines of a model file with a column marker.
func snippet(loc *mznerr.Location) string {
	f, err := os.Open(loc.File)
	if err != nil {
		return ""
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString("\nFile fragment:\n")
	sc := bufio.NewScanner(f)
	for nr := 1; sc.Scan(); nr++ {
		if nr < loc.FirstLine-1 {
			continue
		}
		if nr > loc.FirstLine+1 {
			break
		}
		fmt.Fprintf(&b, "%d: %s\n", nr, strings.TrimRight(sc.Text(), "\r"))
		if diff := loc.LastColumn - loc.FirstColumn; nr == loc.FirstLine && diff > 0 && loc.FirstColumn > 0 {
			pad := len(strconv.Itoa(nr)) + 2 + loc.FirstColumn - 1
			b.WriteString(strings.Repeat(" ", pad) + strings.Repeat("^", diff+1) + "\n")
		}
	}
	return b.String()
}

// FirstError returns the first structured error record of a complete
// --json-stream output, or nil.
func FirstError(stdout []byte) error {
	dec := NewJSONStreamDecoder(bytes.NewReader(stdout), 0)
	for {
		ev, err := dec.Next()
		if err != nil {
			return nil
		}
		if e, ok := ev.(Error); ok {
			return e.Err
		}
	}
}
