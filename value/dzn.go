package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// EncodeDZN renders v as a literal of the solver's textual data format.
// Contiguous integer sets are written as ranges (lo..hi), multi-dimensional
// arrays carry their index sets via arrayNd, objects become records.
func EncodeDZN(v cty.Value) (string, error) {
	var b strings.Builder
	if err := writeDZN(&b, v, ""); err != nil {
		return "", err
	}
	return b.String(), nil
}

// AssignmentDZN renders a full `name = literal;` assignment line.
func AssignmentDZN(name string, v cty.Value) (string, error) {
	lit, err := EncodeDZN(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s = %s;\n", name, lit), nil
}

// EnumDeclDZN renders the member list assignment of an enumerated type.
func EnumDeclDZN(enum string, members []EnumMember) string {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.String()
	}
	return fmt.Sprintf("%s = {%s};\n", enum, strings.Join(names, ", "))
}

func writeDZN(b *strings.Builder, v cty.Value, path string) error {
	if !v.IsKnown() {
		return fmt.Errorf("%s: cannot encode an unknown value", pathOrRoot(path))
	}
	if v.IsNull() {
		b.WriteString("<>")
		return nil
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Number):
		b.WriteString(numberText(v, false))
	case ty.Equals(cty.Bool):
		b.WriteString(strconv.FormatBool(v.True()))
	case ty.Equals(cty.String):
		b.WriteString(strconv.Quote(v.AsString()))
	case ty.Equals(EnumType):
		m, _ := AsEnum(v)
		b.WriteString(m.String())
	case ty.IsSetType():
		return writeDZNSet(b, v, path)
	case ty.IsListType() || ty.IsTupleType():
		return writeDZNArray(b, v, path)
	case ty.IsObjectType() || ty.IsMapType():
		b.WriteByte('(')
		first := true
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(k.AsString())
			b.WriteString(": ")
			if err := writeDZN(b, ev, path+"."+k.AsString()); err != nil {
				return err
			}
		}
		b.WriteByte(')')
	default:
		return fmt.Errorf("%s: unsupported type %s", pathOrRoot(path), ty.FriendlyName())
	}
	return nil
}

func writeDZNSet(b *strings.Builder, v cty.Value, path string) error {
	if runs, ok := intRuns(v); ok {
		if len(runs) == 1 && runs[0].lo.Cmp(runs[0].hi) != 0 {
			fmt.Fprintf(b, "%s..%s", bigIntText(runs[0].lo), bigIntText(runs[0].hi))
			return nil
		}
		parts := make([]string, 0, len(runs))
		for _, r := range runs {
			if r.lo.Cmp(r.hi) == 0 {
				parts = append(parts, bigIntText(r.lo))
				continue
			}
			parts = append(parts, fmt.Sprintf("%s..%s", bigIntText(r.lo), bigIntText(r.hi)))
		}
		if len(parts) <= 1 {
			b.WriteString("{" + strings.Join(parts, "") + "}")
			return nil
		}
		// Unions of ranges keep large gaps cheap.
		wrapped := make([]string, len(parts))
		for i, p := range parts {
			if strings.Contains(p, "..") {
				wrapped[i] = p
			} else {
				wrapped[i] = "{" + p + "}"
			}
		}
		b.WriteString(strings.Join(wrapped, " union "))
		return nil
	}
	b.WriteByte('{')
	for i, ev := range sortedElements(v) {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := writeDZN(b, ev, path+"{}"); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

// arrayShape returns the per-dimension lengths of a rectangular nested list
// and the flattened elements in row-major order.
func arrayShape(v cty.Value) (dims []int, flat []cty.Value, ok bool) {
	isSeq := func(x cty.Value) bool {
		return x.IsKnown() && !x.IsNull() && (x.Type().IsListType() || x.Type().IsTupleType())
	}
	level := []cty.Value{v}
	for {
		if len(level) == 0 || !isSeq(level[0]) {
			break
		}
		n := level[0].LengthInt()
		var next []cty.Value
		for _, x := range level {
			if !isSeq(x) || x.LengthInt() != n {
				return nil, nil, false
			}
			for it := x.ElementIterator(); it.Next(); {
				_, ev := it.Element()
				next = append(next, ev)
			}
		}
		dims = append(dims, n)
		level = next
		if n == 0 {
			break
		}
	}
	return dims, level, true
}

func writeDZNArray(b *strings.Builder, v cty.Value, path string) error {
	dims, flat, ok := arrayShape(v)
	if !ok {
		return fmt.Errorf("%s: nested arrays must be rectangular", pathOrRoot(path))
	}
	writeFlat := func() error {
		b.WriteByte('[')
		for i, ev := range flat {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeDZN(b, ev, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	}
	if len(dims) <= 1 {
		return writeFlat()
	}
	if len(dims) > 6 {
		return fmt.Errorf("%s: arrays of more than 6 dimensions are not supported", pathOrRoot(path))
	}
	fmt.Fprintf(b, "array%dd(", len(dims))
	for _, d := range dims {
		fmt.Fprintf(b, "1..%d, ", d)
	}
	if err := writeFlat(); err != nil {
		return err
	}
	b.WriteByte(')')
	return nil
}
