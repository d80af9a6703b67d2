package value

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Kind is the semantic kind of a declared solver type.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindEnum
	KindSet
	KindArray
	KindTuple
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindSet:
		return "set"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Type is a declared solver type. Composite kinds use Elem (set, array) or
// Fields (tuple, record; tuple fields are unnamed).
type Type struct {
	Kind   Kind
	Elem   *Type
	Dims   int
	Enum   string
	Fields []Field
}

// Field is a named member of a record type or of a Schema.
type Field struct {
	Name string
	Type Type
}

var (
	Int    = Type{Kind: KindInt}
	Float  = Type{Kind: KindFloat}
	Bool   = Type{Kind: KindBool}
	String = Type{Kind: KindString}
)

// EnumOf returns the type of members of the named enumerated type.
func EnumOf(name string) Type { return Type{Kind: KindEnum, Enum: name} }

// SetOf returns a set type with the given element type.
func SetOf(elem Type) Type { return Type{Kind: KindSet, Elem: &elem} }

// ArrayOf returns an array type of the given dimension count.
func ArrayOf(dims int, elem Type) Type {
	if dims < 1 {
		dims = 1
	}
	return Type{Kind: KindArray, Dims: dims, Elem: &elem}
}

// TupleOf returns a tuple type.
func TupleOf(elems ...Type) Type {
	fields := make([]Field, len(elems))
	for i, t := range elems {
		fields[i] = Field{Type: t}
	}
	return Type{Kind: KindTuple, Fields: fields}
}

// RecordOf returns a record type with the given named fields.
func RecordOf(fields ...Field) Type {
	return Type{Kind: KindRecord, Fields: append([]Field(nil), fields...)}
}

// Equal reports whether two types are structurally identical.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Dims != o.Dims || t.Enum != o.Enum || len(t.Fields) != len(o.Fields) {
		return false
	}
	if (t.Elem == nil) != (o.Elem == nil) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*o.Elem) {
		return false
	}
	for i := range t.Fields {
		if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.Equal(o.Fields[i].Type) {
			return false
		}
	}
	return true
}

// String renders the type in the solver's own notation.
func (t Type) String() string {
	switch t.Kind {
	case KindEnum:
		if t.Enum == "" {
			return "enum"
		}
		return t.Enum
	case KindSet:
		return "set of " + t.Elem.String()
	case KindArray:
		idx := make([]string, t.Dims)
		for i := range idx {
			idx[i] = "int"
		}
		return fmt.Sprintf("array[%s] of %s", strings.Join(idx, ","), t.Elem.String())
	case KindTuple:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Type.String()
		}
		return "tuple(" + strings.Join(parts, ", ") + ")"
	case KindRecord:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Type.String() + ": " + f.Name
		}
		return "record(" + strings.Join(parts, ", ") + ")"
	default:
		return t.Kind.String()
	}
}

// CtyType returns the host cty.Type values of this type decode into.
func (t Type) CtyType() cty.Type {
	switch t.Kind {
	case KindInt, KindFloat:
		return cty.Number
	case KindBool:
		return cty.Bool
	case KindString:
		return cty.String
	case KindEnum:
		return EnumType
	case KindSet:
		return cty.Set(t.Elem.CtyType())
	case KindArray:
		ty := t.Elem.CtyType()
		for i := 0; i < t.Dims; i++ {
			ty = cty.List(ty)
		}
		return ty
	case KindTuple:
		elems := make([]cty.Type, len(t.Fields))
		for i, f := range t.Fields {
			elems[i] = f.Type.CtyType()
		}
		return cty.Tuple(elems)
	case KindRecord:
		attrs := make(map[string]cty.Type, len(t.Fields))
		for _, f := range t.Fields {
			attrs[f.Name] = f.Type.CtyType()
		}
		return cty.Object(attrs)
	default:
		return cty.DynamicPseudoType
	}
}

// FromInterface converts a type record of the driver's model interface
// output, e.g. {"type":"int","dim":2} or {"type":"int","set":true}.
func FromInterface(rec map[string]any) (Type, error) {
	base, _ := rec["type"].(string)
	var t Type
	switch base {
	case "int":
		t = Int
		if enum, ok := rec["enum_type"].(string); ok && enum != "" {
			t = EnumOf(enum)
		}
	case "float":
		t = Float
	case "bool":
		t = Bool
	case "string":
		t = String
	case "tuple":
		raw, _ := rec["field_types"].([]any)
		elems := make([]Type, 0, len(raw))
		for i, r := range raw {
			sub, ok := r.(map[string]any)
			if !ok {
				return Type{}, fmt.Errorf("tuple field %d: malformed type record", i)
			}
			et, err := FromInterface(sub)
			if err != nil {
				return Type{}, fmt.Errorf("tuple field %d: %w", i, err)
			}
			elems = append(elems, et)
		}
		t = TupleOf(elems...)
	case "record":
		raw, _ := rec["field_types"].([]any)
		fields := make([]Field, 0, len(raw))
		for i, r := range raw {
			sub, ok := r.(map[string]any)
			if !ok {
				return Type{}, fmt.Errorf("record field %d: malformed type record", i)
			}
			name, _ := sub["name"].(string)
			et, err := FromInterface(sub)
			if err != nil {
				return Type{}, fmt.Errorf("record field %q: %w", name, err)
			}
			fields = append(fields, Field{Name: name, Type: et})
		}
		t = RecordOf(fields...)
	default:
		return Type{}, fmt.Errorf("unsupported base type %q", base)
	}
	if set, _ := rec["set"].(bool); set {
		t = SetOf(t)
	}
	if dim := intField(rec["dim"]); dim > 0 {
		t = ArrayOf(dim, t)
	}
	return t, nil
}

func intField(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	}
	return 0
}
