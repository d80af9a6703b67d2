package result

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type statKind int

const (
	statInt statKind = iota + 1
	statFloat
	statString
	statDuration
)

// Well-known statistics with a fixed type. Durations are reported in
// seconds.
var knownStats = map[string]statKind{
	"nodes":                           statInt,
	"failures":                        statInt,
	"restarts":                        statInt,
	"variables":                       statInt,
	"intVariables":                    statInt,
	"boolVariables":                   statInt,
	"floatVariables":                  statInt,
	"setVariables":                    statInt,
	"propagators":                     statInt,
	"propagations":                    statInt,
	"peakDepth":                       statInt,
	"nogoods":                         statInt,
	"backjumps":                       statInt,
	"peakMem":                         statFloat,
	"initTime":                        statDuration,
	"solveTime":                       statDuration,
	"flatTime":                        statDuration,
	"paths":                           statInt,
	"flatBoolVars":                    statInt,
	"flatFloatVars":                   statInt,
	"flatIntVars":                     statInt,
	"flatSetVars":                     statInt,
	"flatBoolConstraints":             statInt,
	"flatFloatConstraints":            statInt,
	"flatIntConstraints":              statInt,
	"flatSetConstraints":              statInt,
	"method":                          statString,
	"evaluatedReifiedConstraints":     statInt,
	"evaluatedHalfReifiedConstraints": statInt,
	"eliminatedImplications":          statInt,
	"eliminatedLinearConstraints":     statInt,
}

// Statistics maps statistic names to int64, float64, string, bool or
// time.Duration values.
type Statistics map[string]any

// Set stores a statistic, coercing raw values: known names get their fixed
// type, names mentioning "time" become durations, other numeric text becomes
// int64 or float64.
func (s Statistics) Set(name string, raw any) {
	s[name] = coerce(name, raw)
}

// Keys returns the statistic names, sorted.
func (s Statistics) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Duration returns a duration statistic.
func (s Statistics) Duration(name string) (time.Duration, bool) {
	d, ok := s[name].(time.Duration)
	return d, ok
}

// Int returns an integer statistic.
func (s Statistics) Int(name string) (int64, bool) {
	n, ok := s[name].(int64)
	return n, ok
}

func (s Statistics) clone() Statistics {
	c := make(Statistics, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

func coerce(name string, raw any) any {
	var text string
	switch v := raw.(type) {
	case time.Duration, bool, int64, float64:
		return v
	case int:
		return int64(v)
	case json.Number:
		text = v.String()
	case string:
		text = strings.Trim(strings.TrimSpace(v), `"`)
	default:
		return fmt.Sprint(v)
	}

	kind, known := knownStats[name]
	if !known && (strings.Contains(name, "time") || strings.Contains(name, "Time")) {
		kind = statDuration
	}
	switch kind {
	case statDuration:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return time.Duration(f * float64(time.Second)).Round(time.Microsecond)
		}
	case statInt:
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return int64(f)
		}
	case statFloat:
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case statString:
		return text
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return f
	}
	return text
}
