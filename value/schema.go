package value

import (
	"fmt"
	"sort"

	"github.com/vk/mzngo/mznerr"
	"github.com/zclconf/go-cty/cty"
)

// Schema is the ordered list of declared output variables of a model.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema. A repeated name replaces the earlier type but
// keeps its original position.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{index: make(map[string]int, len(fields))}
	for _, f := range fields {
		s.Set(f.Name, f.Type)
	}
	return s
}

// Set declares or redeclares an output variable.
func (s *Schema) Set(name string, t Type) {
	if i, ok := s.index[name]; ok {
		s.fields[i].Type = t
		return
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, Field{Name: name, Type: t})
}

// Fields returns the declared fields in order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	return append([]Field(nil), s.fields...)
}

// Lookup returns the declared type of name.
func (s *Schema) Lookup(name string) (Type, bool) {
	if s == nil {
		return Type{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Type{}, false
	}
	return s.fields[i].Type, true
}

// Len is the number of declared fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// Clone returns an independent copy.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	return NewSchema(s.fields...)
}

// FromInterfaceOutput builds a schema from the "output" object of a model
// interface record. Keys are sorted since JSON objects carry no order.
func FromInterfaceOutput(output map[string]any) (*Schema, error) {
	names := make([]string, 0, len(output))
	for name := range output {
		names = append(names, name)
	}
	sort.Strings(names)
	s := NewSchema()
	for _, name := range names {
		rec, ok := output[name].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("output %q: malformed type record", name)
		}
		t, err := FromInterface(rec)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		s.Set(name, t)
	}
	return s, nil
}

// Plan is a schema compiled into a fixed sequence of field decoders.
type Plan struct {
	names    []string
	decoders []decodeFn
	index    map[string]int
}

// Compile resolves the decode plan for every declared field once.
func (s *Schema) Compile(enums *EnumMap) *Plan {
	p := &Plan{index: make(map[string]int, s.Len())}
	for i, f := range s.Fields() {
		p.names = append(p.names, f.Name)
		p.decoders = append(p.decoders, compile(f.Type, enums))
		p.index[f.Name] = i
	}
	return p
}

// Names returns the field names in declaration order.
func (p *Plan) Names() []string { return append([]string(nil), p.names...) }

// Decode applies the plan to a parsed solution object. The object's key set
// must equal the declared field set exactly.
func (p *Plan) Decode(obj map[string]any) ([]cty.Value, error) {
	for key := range obj {
		if _, ok := p.index[key]; !ok {
			return nil, &mznerr.TypeMismatch{Path: key, Expected: "no such output variable", Got: describe(obj[key])}
		}
	}
	vals := make([]cty.Value, len(p.names))
	for i, name := range p.names {
		tok, ok := obj[name]
		if !ok {
			return nil, &mznerr.TypeMismatch{Path: name, Expected: "a value", Got: "missing field"}
		}
		v, err := p.decoders[i](name, tok)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
