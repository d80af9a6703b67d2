package value

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// EncodeJSON renders v in the driver's JSON interchange format: sets become
// {"set":[...]} with contiguous integer runs written as [lo,hi] pairs, enum
// members become {"e":name}, arrays and tuples become nested lists.
func EncodeJSON(v cty.Value) ([]byte, error) {
	tree, err := jsonTree(v, "")
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// EncodeJSONObject renders a mapping of parameter name to value as a single
// JSON object, the layout of a JSON data file.
func EncodeJSONObject(assignments map[string]cty.Value) ([]byte, error) {
	obj := make(map[string]any, len(assignments))
	for name, v := range assignments {
		tree, err := jsonTree(v, name)
		if err != nil {
			return nil, err
		}
		obj[name] = tree
	}
	return json.MarshalIndent(obj, "", "  ")
}

func jsonTree(v cty.Value, path string) (any, error) {
	if !v.IsKnown() {
		return nil, fmt.Errorf("%s: cannot encode an unknown value", pathOrRoot(path))
	}
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Number):
		return json.Number(numberText(v, false)), nil
	case ty.Equals(cty.Bool):
		return v.True(), nil
	case ty.Equals(cty.String):
		return v.AsString(), nil
	case ty.Equals(EnumType):
		m, _ := AsEnum(v)
		if m.Name == "" {
			return map[string]any{"e": m.Enum, "i": m.Ordinal}, nil
		}
		return map[string]any{"e": m.Name}, nil
	case ty.IsSetType():
		return jsonSet(v, path)
	case ty.IsListType() || ty.IsTupleType():
		out := make([]any, 0, v.LengthInt())
		i := 0
		for it := v.ElementIterator(); it.Next(); i++ {
			_, ev := it.Element()
			t, err := jsonTree(ev, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			t, err := jsonTree(ev, path+"."+k.AsString())
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = t
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: unsupported type %s", pathOrRoot(path), ty.FriendlyName())
	}
}

func jsonSet(v cty.Value, path string) (any, error) {
	if runs, ok := intRuns(v); ok {
		items := make([]any, 0, len(runs))
		for _, r := range runs {
			if r.lo.Cmp(r.hi) == 0 {
				items = append(items, json.Number(r.lo.String()))
				continue
			}
			items = append(items, []any{json.Number(r.lo.String()), json.Number(r.hi.String())})
		}
		return map[string]any{"set": items}, nil
	}
	items := make([]any, 0, v.LengthInt())
	for _, ev := range sortedElements(v) {
		t, err := jsonTree(ev, path+"{}")
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return map[string]any{"set": items}, nil
}

func pathOrRoot(path string) string {
	if path == "" {
		return "value"
	}
	return path
}
