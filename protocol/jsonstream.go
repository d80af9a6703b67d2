package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/vk/mzngo/mznerr"
)

// Decoder yields the events of one output channel in order. Next returns
// io.EOF once the channel is exhausted.
type Decoder interface {
	Next() (Event, error)
}

// JSONStreamDecoder reads --json-stream output.
type JSONStreamDecoder struct {
	lines     *LineReader
	pending   []Event
	solutions int
}

// NewJSONStreamDecoder reads records from r with the given initial chunk
// size.
func NewJSONStreamDecoder(r io.Reader, chunk int) *JSONStreamDecoder {
	return &JSONStreamDecoder{lines: NewLineReader(r, chunk)}
}

func (d *JSONStreamDecoder) Next() (Event, error) {
	for len(d.pending) == 0 {
		line, err := d.lines.ReadLine()
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		d.pending = d.decodeRecord(line)
	}
	ev := d.pending[0]
	d.pending = d.pending[1:]
	return ev, nil
}

func (d *JSONStreamDecoder) decodeRecord(line []byte) []Event {
	rec, err := parseObject(line)
	if err != nil {
		return []Event{Warning{Message: fmt.Sprintf("unparseable output record: %v", err)}}
	}
	typ, _ := rec["type"].(string)
	switch typ {
	case "solution":
		ev := SolutionFound{Index: d.solutions}
		d.solutions++
		if output, ok := rec["output"].(map[string]any); ok {
			for k, v := range output {
				if k == "json" {
					ev.Fields, _ = v.(map[string]any)
					continue
				}
				if s, ok := v.(string); ok {
					if ev.Sections == nil {
						ev.Sections = make(map[string]string)
					}
					ev.Sections[k] = s
				}
			}
		}
		ev.Time, ev.HasTime = millis(rec["time"])
		return []Event{ev}

	case "status":
		s, _ := rec["status"].(string)
		tok, ok := ParseToken(s)
		if !ok {
			return []Event{Warning{Message: fmt.Sprintf("unknown status %q", s)}}
		}
		ev := StatusChanged{Token: tok}
		ev.Time, _ = millis(rec["time"])
		return []Event{ev}

	case "statistics":
		stats, _ := rec["statistics"].(map[string]any)
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		evs := make([]Event, 0, len(keys))
		for _, k := range keys {
			evs = append(evs, StatisticRecord{Key: k, Value: stats[k]})
		}
		return evs

	case "time":
		if t, ok := millis(rec["time"]); ok {
			return []Event{StatisticRecord{Key: "time", Value: t}}
		}
		return nil

	case "error":
		what, _ := rec["what"].(string)
		msg, _ := rec["message"].(string)
		return []Event{Error{
			Err:   &mznerr.ModelError{Kind: mznerr.KindFromWhat(what), Message: msg, Location: location(rec["location"])},
			Fatal: true,
		}}

	case "warning":
		msg, _ := rec["message"].(string)
		return []Event{Warning{Message: msg, Location: location(rec["location"])}}

	case "checker":
		return []Event{Checker{Text: checkerText(rec)}}

	case "comment":
		c, _ := rec["comment"].(string)
		return []Event{Comment{Text: strings.TrimRight(c, "\n")}}

	default:
		// interface, paths, trace, profiling and progress records carry
		// nothing a session consumes.
		return nil
	}
}

func parseObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec map[string]any
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func millis(v any) (time.Duration, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return time.Duration(f * float64(time.Millisecond)), true
}

func location(v any) *mznerr.Location {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	num := func(key string) int {
		n, _ := m[key].(json.Number)
		i, _ := n.Int64()
		return int(i)
	}
	file, _ := m["filename"].(string)
	return &mznerr.Location{
		File:        file,
		FirstLine:   num("firstLine"),
		LastLine:    num("lastLine"),
		FirstColumn: num("firstColumn"),
		LastColumn:  num("lastColumn"),
	}
}

func checkerText(rec map[string]any) string {
	if output, ok := rec["output"].(map[string]any); ok {
		for _, key := range []string{"raw", "dzn", "default"} {
			if s, ok := output[key].(string); ok {
				return s
			}
		}
	}
	// Newer drivers nest the checker's own records.
	msgs, _ := rec["messages"].([]any)
	var b strings.Builder
	for _, m := range msgs {
		inner, ok := m.(map[string]any)
		if !ok {
			continue
		}
		if output, ok := inner["output"].(map[string]any); ok {
			for _, key := range []string{"raw", "dzn", "default"} {
				if s, ok := output[key].(string); ok {
					b.WriteString(s)
					break
				}
			}
		}
	}
	return b.String()
}
