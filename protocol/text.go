package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	solutionSeparator = "----------"
	searchComplete    = "=========="
)

var (
	statLine    = regexp.MustCompile(`^%%%mzn-stat:? (\w*)=(.*)$`)
	elapsedLine = regexp.MustCompile(`^% time elapsed: ([0-9.eE+-]+) s`)
	statusLine  = regexp.MustCompile(`^=====([A-Za-z_]+)=====$`)
)

// TextDecoder reads the legacy delimited output of drivers without
// --json-stream support. The meaning of "==========" depends on the solving
// method.
type TextDecoder struct {
	lines     *LineReader
	method    Method
	block     bytes.Buffer
	blockTime time.Duration
	hasTime   bool
	solutions int
	done      bool
}

// NewTextDecoder reads delimited output from r.
func NewTextDecoder(r io.Reader, chunk int, method Method) *TextDecoder {
	return &TextDecoder{lines: NewLineReader(r, chunk), method: method}
}

func (d *TextDecoder) Next() (Event, error) {
	for {
		if d.done {
			return nil, io.EOF
		}
		line, err := d.lines.ReadLine()
		if errors.Is(err, io.EOF) {
			d.done = true
			if strings.TrimSpace(d.block.String()) != "" {
				d.block.Reset()
				return Warning{Message: "output ended inside a solution block; partial solution discarded"}, nil
			}
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		if ev := d.decodeLine(string(line)); ev != nil {
			return ev, nil
		}
	}
}

func (d *TextDecoder) decodeLine(line string) Event {
	switch {
	case line == solutionSeparator:
		ev := SolutionFound{Index: d.solutions, Time: d.blockTime, HasTime: d.hasTime}
		d.solutions++
		text := strings.TrimSpace(d.block.String())
		d.block.Reset()
		d.blockTime, d.hasTime = 0, false
		if text != "" {
			if fields, err := parseObject([]byte(text)); err == nil {
				ev.Fields = fields
			} else {
				ev.Sections = map[string]string{"raw": text}
			}
		}
		return ev

	case line == searchComplete:
		if d.method == Satisfy {
			return StatusChanged{Token: TokenAllSolutions}
		}
		return StatusChanged{Token: TokenOptimal}

	case statusLine.MatchString(line):
		name := statusLine.FindStringSubmatch(line)[1]
		if tok, ok := ParseToken(name); ok {
			return StatusChanged{Token: tok}
		}
		return Warning{Message: fmt.Sprintf("unknown status marker %q", line)}

	case statLine.MatchString(line):
		m := statLine.FindStringSubmatch(line)
		return StatisticRecord{Key: m[1], Value: strings.TrimSpace(m[2])}

	case strings.HasPrefix(line, "%%%mzn-stat"):
		return nil

	case elapsedLine.MatchString(line):
		secs, err := strconv.ParseFloat(elapsedLine.FindStringSubmatch(line)[1], 64)
		if err != nil {
			return Comment{Text: line}
		}
		t := time.Duration(secs * float64(time.Second))
		if d.block.Len() > 0 {
			d.blockTime, d.hasTime = t, true
			return nil
		}
		return StatisticRecord{Key: "time", Value: t}

	case strings.HasPrefix(line, "%"):
		return Comment{Text: strings.TrimSpace(strings.TrimPrefix(line, "%"))}

	default:
		d.block.WriteString(line)
		d.block.WriteByte('\n')
		return nil
	}
}
