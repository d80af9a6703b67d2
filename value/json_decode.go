package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vk/mzngo/mznerr"
	"github.com/zclconf/go-cty/cty"
)

// decodeFn converts one JSON token (as produced by a json.Decoder with
// UseNumber) into a host value of a fixed declared type.
type decodeFn func(path string, tok any) (cty.Value, error)

// ParseJSON reads a single JSON document into a token tree with exact numbers.
func ParseJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tok any
	if err := dec.Decode(&tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// DecodeJSON decodes an encoded JSON document into a value of type t.
func DecodeJSON(data []byte, t Type, enums *EnumMap) (cty.Value, error) {
	tok, err := ParseJSON(data)
	if err != nil {
		return cty.NilVal, fmt.Errorf("parsing JSON value: %w", err)
	}
	return compile(t, enums)("", tok)
}

// Decode converts an already parsed token into a value of type t.
func Decode(tok any, t Type, enums *EnumMap) (cty.Value, error) {
	return compile(t, enums)("", tok)
}

func mismatch(path string, expected Type, tok any) error {
	return &mznerr.TypeMismatch{Path: path, Expected: expected.String(), Got: describe(tok)}
}

func describe(tok any) string {
	switch t := tok.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case json.Number:
		return "number " + t.String()
	case []any:
		return fmt.Sprintf("list of %d", len(t))
	case map[string]any:
		if _, ok := t["set"]; ok && len(t) == 1 {
			return "set"
		}
		if _, ok := t["e"]; ok {
			return "enum"
		}
		return "object"
	default:
		return fmt.Sprintf("%T", tok)
	}
}

// compile builds the decoder for t once; the returned closure does no type
// dispatch on t itself.
func compile(t Type, enums *EnumMap) decodeFn {
	ctyTy := t.CtyType()
	var inner decodeFn
	switch t.Kind {
	case KindInt:
		inner = func(path string, tok any) (cty.Value, error) {
			n, ok := tok.(json.Number)
			if !ok {
				return cty.NilVal, mismatch(path, t, tok)
			}
			bf, _, err := big.ParseFloat(n.String(), 10, 512, big.ToNearestEven)
			if err != nil || !bf.IsInt() {
				return cty.NilVal, mismatch(path, t, tok)
			}
			return cty.NumberVal(bf), nil
		}
	case KindFloat:
		inner = func(path string, tok any) (cty.Value, error) {
			switch n := tok.(type) {
			case json.Number:
				v, err := cty.ParseNumberVal(n.String())
				if err != nil {
					return cty.NilVal, mismatch(path, t, tok)
				}
				return v, nil
			case string:
				// Infinities have no JSON number form.
				switch n {
				case "infinity", "Infinity", "inf":
					return cty.PositiveInfinity, nil
				case "-infinity", "-Infinity", "-inf":
					return cty.NegativeInfinity, nil
				}
			}
			return cty.NilVal, mismatch(path, t, tok)
		}
	case KindBool:
		inner = func(path string, tok any) (cty.Value, error) {
			b, ok := tok.(bool)
			if !ok {
				return cty.NilVal, mismatch(path, t, tok)
			}
			return cty.BoolVal(b), nil
		}
	case KindString:
		inner = func(path string, tok any) (cty.Value, error) {
			s, ok := tok.(string)
			if !ok {
				return cty.NilVal, mismatch(path, t, tok)
			}
			return cty.StringVal(s), nil
		}
	case KindEnum:
		inner = compileEnum(t, enums)
	case KindSet:
		inner = compileSet(t, enums)
	case KindArray:
		inner = compileArray(t, enums)
	case KindTuple:
		elems := make([]decodeFn, len(t.Fields))
		for i, f := range t.Fields {
			elems[i] = compile(f.Type, enums)
		}
		inner = func(path string, tok any) (cty.Value, error) {
			list, ok := tok.([]any)
			if !ok || len(list) != len(elems) {
				return cty.NilVal, mismatch(path, t, tok)
			}
			vals := make([]cty.Value, len(list))
			for i, item := range list {
				v, err := elems[i](fmt.Sprintf("%s.%d", path, i+1), item)
				if err != nil {
					return cty.NilVal, err
				}
				vals[i] = v
			}
			if len(vals) == 0 {
				return cty.EmptyTupleVal, nil
			}
			return cty.TupleVal(vals), nil
		}
	case KindRecord:
		fields := make(map[string]decodeFn, len(t.Fields))
		for _, f := range t.Fields {
			fields[f.Name] = compile(f.Type, enums)
		}
		inner = func(path string, tok any) (cty.Value, error) {
			obj, ok := tok.(map[string]any)
			if !ok || len(obj) != len(fields) {
				return cty.NilVal, mismatch(path, t, tok)
			}
			attrs := make(map[string]cty.Value, len(fields))
			for name, fn := range fields {
				item, present := obj[name]
				if !present {
					return cty.NilVal, mismatch(path, t, tok)
				}
				v, err := fn(path+"."+name, item)
				if err != nil {
					return cty.NilVal, err
				}
				attrs[name] = v
			}
			if len(attrs) == 0 {
				return cty.EmptyObjectVal, nil
			}
			return cty.ObjectVal(attrs), nil
		}
	default:
		inner = func(path string, tok any) (cty.Value, error) {
			return cty.NilVal, mismatch(path, t, tok)
		}
	}
	return func(path string, tok any) (cty.Value, error) {
		// Absent optional values arrive as null.
		if tok == nil {
			return cty.NullVal(ctyTy), nil
		}
		return inner(path, tok)
	}
}

func compileEnum(t Type, enums *EnumMap) decodeFn {
	return func(path string, tok any) (cty.Value, error) {
		switch e := tok.(type) {
		case string:
			return EnumVal(resolveEnum(t.Enum, e, enums)), nil
		case map[string]any:
			if name, ok := e["e"].(string); ok {
				if ord, has := e["i"]; has {
					n := intField(ord)
					if mem, found := enums.Member(name, n); found {
						return EnumVal(mem), nil
					}
					return EnumVal(EnumMember{Enum: name, Ordinal: n}), nil
				}
				if _, isCtor := e["c"]; !isCtor {
					return EnumVal(resolveEnum(t.Enum, name, enums)), nil
				}
			}
			if ctor, ok := e["c"].(string); ok {
				arg, err := json.Marshal(e["e"])
				if err != nil {
					return cty.NilVal, mismatch(path, t, tok)
				}
				return EnumVal(EnumMember{Enum: t.Enum, Name: fmt.Sprintf("%s(%s)", ctor, arg)}), nil
			}
		}
		return cty.NilVal, mismatch(path, t, tok)
	}
}

func resolveEnum(enum, name string, enums *EnumMap) EnumMember {
	if mem, ok := enums.Lookup(name); ok {
		return mem
	}
	return EnumMember{Enum: enum, Name: name}
}

func compileSet(t Type, enums *EnumMap) decodeFn {
	elem := compile(*t.Elem, enums)
	elemCty := t.Elem.CtyType()
	intElems := t.Elem.Kind == KindInt
	return func(path string, tok any) (cty.Value, error) {
		obj, ok := tok.(map[string]any)
		if !ok || len(obj) != 1 {
			return cty.NilVal, mismatch(path, t, tok)
		}
		items, ok := obj["set"].([]any)
		if !ok {
			return cty.NilVal, mismatch(path, t, tok)
		}
		var vals []cty.Value
		for i, item := range items {
			if pair, isPair := item.([]any); isPair {
				if !intElems || len(pair) != 2 {
					return cty.NilVal, mismatch(fmt.Sprintf("%s{%d}", path, i), *t.Elem, item)
				}
				lo, err := elem(path, pair[0])
				if err != nil {
					return cty.NilVal, err
				}
				hi, err := elem(path, pair[1])
				if err != nil {
					return cty.NilVal, err
				}
				l, _ := lo.AsBigFloat().Int(nil)
				h, _ := hi.AsBigFloat().Int(nil)
				n, ok := RangeLen(l, h)
				if !ok || len(vals)+n > MaxSetElements {
					return cty.NilVal, &mznerr.TypeMismatch{
						Path:     fmt.Sprintf("%s{%d}", path, i),
						Expected: fmt.Sprintf("%s of at most %d elements", t, MaxSetElements),
						Got:      fmt.Sprintf("range %s..%s", l, h),
					}
				}
				vals = appendRange(vals, l, h)
				continue
			}
			v, err := elem(fmt.Sprintf("%s{%d}", path, i), item)
			if err != nil {
				return cty.NilVal, err
			}
			vals = append(vals, v)
		}
		if len(vals) == 0 {
			return cty.SetValEmpty(elemCty), nil
		}
		return cty.SetVal(vals), nil
	}
}

func compileArray(t Type, enums *EnumMap) decodeFn {
	fn := compile(*t.Elem, enums)
	ty := t.Elem.CtyType()
	for d := 0; d < t.Dims; d++ {
		fn = listOf(t, fn, ty)
		ty = cty.List(ty)
	}
	return fn
}

func listOf(whole Type, elem decodeFn, elemTy cty.Type) decodeFn {
	return func(path string, tok any) (cty.Value, error) {
		if tok == nil {
			return cty.NullVal(cty.List(elemTy)), nil
		}
		list, ok := tok.([]any)
		if !ok {
			return cty.NilVal, mismatch(path, whole, tok)
		}
		if len(list) == 0 {
			return cty.ListValEmpty(elemTy), nil
		}
		vals := make([]cty.Value, len(list))
		for i, item := range list {
			v, err := elem(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = v
		}
		return cty.ListVal(vals), nil
	}
}
