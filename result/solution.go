package result

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/protocol"
	"github.com/vk/mzngo/value"
	"github.com/zclconf/go-cty/cty"
)

// Reserved solution fields that do not come from declared outputs.
const (
	ObjectiveField  = "objective"
	OutputItemField = "_output_item"
	CheckerField    = "_checker"
)

// Solution is an immutable snapshot of the output variables of one solution.
type Solution struct {
	Index int
	Time  time.Duration

	names      []string
	values     map[string]cty.Value
	objective  cty.Value
	hasObj     bool
	outputItem string
	checker    string
}

// Names returns the declared output names in declaration order.
func (s *Solution) Names() []string { return append([]string(nil), s.names...) }

// Get returns the value of a declared output or reserved field.
func (s *Solution) Get(name string) (cty.Value, bool) {
	if v, ok := s.values[name]; ok {
		return v, true
	}
	switch name {
	case ObjectiveField:
		return s.objective, s.hasObj
	case OutputItemField:
		return cty.StringVal(s.outputItem), true
	case CheckerField:
		return cty.StringVal(s.checker), s.checker != ""
	}
	return cty.NilVal, false
}

// Objective returns the objective value of an optimisation problem.
func (s *Solution) Objective() (cty.Value, bool) {
	return s.objective, s.hasObj
}

// OutputItem is the text produced by the model's output item.
func (s *Solution) OutputItem() string { return s.outputItem }

// Check is the solution checker's output, or "".
func (s *Solution) Check() string { return s.checker }

// Map renders the solution as plain Go data, reserved fields included when
// present.
func (s *Solution) Map() (map[string]any, error) {
	out := make(map[string]any, len(s.values)+3)
	for _, name := range s.names {
		v, err := value.ToPlain(s.values[name])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		out[name] = v
	}
	if obj, ok := s.Objective(); ok {
		if _, declared := s.values[ObjectiveField]; !declared {
			v, err := value.ToPlain(obj)
			if err != nil {
				return nil, err
			}
			out[ObjectiveField] = v
		}
	}
	if s.outputItem != "" {
		out[OutputItemField] = s.outputItem
	}
	if s.checker != "" {
		out[CheckerField] = s.checker
	}
	return out, nil
}

// String returns the output item, or a DZN rendering of the fields when the
// model has none.
func (s *Solution) String() string {
	if s.outputItem != "" {
		return s.outputItem
	}
	var b strings.Builder
	for _, name := range s.names {
		line, err := value.AssignmentDZN(name, s.values[name])
		if err != nil {
			fmt.Fprintf(&b, "%% %s: %v\n", name, err)
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// Decoder turns raw solution events into typed solutions using a decode
// plan compiled once per model.
type Decoder struct {
	plan *value.Plan
}

// NewDecoder compiles the output schema of a model.
func NewDecoder(schema *value.Schema, enums *value.EnumMap) *Decoder {
	if schema == nil {
		schema = value.NewSchema()
	}
	return &Decoder{plan: schema.Compile(enums)}
}

// Decode types one solution. checker is the checker output that preceded
// it, if any.
func (d *Decoder) Decode(ev protocol.SolutionFound, checker string) (*Solution, error) {
	sol := &Solution{
		Index:   ev.Index,
		Time:    ev.Time,
		names:   d.plan.Names(),
		values:  make(map[string]cty.Value),
		checker: checker,
	}

	fields := make(map[string]any, len(ev.Fields))
	for k, v := range ev.Fields {
		switch k {
		case "_objective":
			obj, err := objective(v)
			if err != nil {
				return nil, err
			}
			sol.objective, sol.hasObj = obj, true
		case "_output":
			sol.outputItem, _ = v.(string)
		case CheckerField:
			if s, ok := v.(string); ok && sol.checker == "" {
				sol.checker = s
			}
		default:
			fields[k] = v
		}
	}
	if sol.outputItem == "" && ev.Fields == nil {
		sol.outputItem = ev.Sections["raw"]
	}

	vals, err := d.plan.Decode(fields)
	if err != nil {
		return nil, fmt.Errorf("decoding solution %d: %w", ev.Index+1, err)
	}
	for i, name := range sol.names {
		sol.values[name] = vals[i]
	}
	return sol, nil
}

func objective(v any) (cty.Value, error) {
	switch n := v.(type) {
	case json.Number:
		return cty.ParseNumberVal(n.String())
	case nil:
		return cty.NullVal(cty.Number), nil
	case string:
		switch n {
		case "infinity":
			return cty.PositiveInfinity, nil
		case "-infinity":
			return cty.NegativeInfinity, nil
		}
	}
	return cty.NilVal, &mznerr.TypeMismatch{Path: "_objective", Expected: "number", Got: fmt.Sprintf("%T", v)}
}
