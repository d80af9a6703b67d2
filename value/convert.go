// This file converts between native Go values and host cty values, so that
// callers can assign plain ints, slices and maps and read solutions back as
// ordinary Go data.

package value

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// FromGo converts a native Go value into a cty value. cty values and
// EnumMember pass through; other types go through gocty's implied type.
func FromGo(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NilVal, fmt.Errorf("cannot assign a nil value")
	case cty.Value:
		return x, nil
	case EnumMember:
		return EnumVal(x), nil
	case []EnumMember:
		vals := make([]cty.Value, len(x))
		for i, m := range x {
			vals[i] = EnumVal(m)
		}
		if len(vals) == 0 {
			return cty.ListValEmpty(EnumType), nil
		}
		return cty.ListVal(vals), nil
	case map[EnumMember]struct{}:
		vals := make([]cty.Value, 0, len(x))
		for m := range x {
			vals = append(vals, EnumVal(m))
		}
		if len(vals) == 0 {
			return cty.SetValEmpty(EnumType), nil
		}
		return cty.SetVal(vals), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

// ToGo recursively converts a cty value to its most natural Go counterpart:
// integers become int64, other numbers float64, lists and tuples []any,
// sets []any in sorted order, objects map[string]any and enums EnumMember.
func ToGo(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == 0 {
				return n, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert cty.Number to float64: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.Equals(EnumType):
		m, _ := AsEnum(v)
		return m, nil

	case ty.IsSetType():
		slice := make([]any, 0, v.LengthInt())
		for _, ev := range sortedElements(v) {
			nativeVal, err := ToGo(ev)
			if err != nil {
				return nil, err
			}
			slice = append(slice, nativeVal)
		}
		return slice, nil

	case ty.IsListType() || ty.IsTupleType():
		slice := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, val := it.Element()
			nativeVal, err := ToGo(val)
			if err != nil {
				return nil, err
			}
			slice = append(slice, nativeVal)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		goMap := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, val := it.Element()
			keyStr := key.AsString()
			nativeVal, err := ToGo(val)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", keyStr, err)
			}
			goMap[keyStr] = nativeVal
		}
		return goMap, nil

	default:
		return nil, fmt.Errorf("unsupported cty type for conversion: %s", ty.FriendlyName())
	}
}

// ToPlain is ToGo with enum members flattened to their string form, for
// rendering with generic encoders such as JSON or YAML.
func ToPlain(v cty.Value) (any, error) {
	native, err := ToGo(v)
	if err != nil {
		return nil, err
	}
	return plain(native), nil
}

func plain(x any) any {
	switch t := x.(type) {
	case EnumMember:
		return t.String()
	case []any:
		for i := range t {
			t[i] = plain(t[i])
		}
		return t
	case map[string]any:
		for k, v := range t {
			t[k] = plain(v)
		}
		return t
	default:
		return x
	}
}
