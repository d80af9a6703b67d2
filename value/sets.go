package value

import (
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// MaxSetElements bounds how many integers a set built from ranges may hold.
// Decoding a larger set fails with a TypeMismatch.
const MaxSetElements = 1 << 20

// RangeLen returns the number of integers in lo..hi. ok is false when that
// number exceeds MaxSetElements.
func RangeLen(lo, hi *big.Int) (n int, ok bool) {
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, big.NewInt(1))
	if span.Sign() <= 0 {
		return 0, true
	}
	if span.Cmp(big.NewInt(MaxSetElements)) > 0 {
		return 0, false
	}
	return int(span.Int64()), true
}

// appendRange appends lo..hi. It never steps past hi, so bounds at the
// edge of any integer width are safe.
func appendRange(vals []cty.Value, lo, hi *big.Int) []cty.Value {
	if lo.Cmp(hi) > 0 {
		return vals
	}
	one := big.NewInt(1)
	for n := new(big.Int).Set(lo); ; n.Add(n, one) {
		vals = append(vals, cty.NumberVal(new(big.Float).SetInt(n)))
		if n.Cmp(hi) == 0 {
			return vals
		}
	}
}

// RangeVal returns the contiguous integer set lo..hi. An empty range (lo > hi)
// yields the empty set. Every element is materialised; check the span with
// RangeLen first when the bounds are not under the caller's control.
func RangeVal(lo, hi int64) cty.Value {
	l, h := big.NewInt(lo), big.NewInt(hi)
	n, ok := RangeLen(l, h)
	if n == 0 && ok {
		return cty.SetValEmpty(cty.Number)
	}
	if !ok {
		n = MaxSetElements
	}
	return cty.SetVal(appendRange(make([]cty.Value, 0, n), l, h))
}

// IntSetVal returns the set of the given integers.
func IntSetVal(ints ...int64) cty.Value {
	if len(ints) == 0 {
		return cty.SetValEmpty(cty.Number)
	}
	elems := make([]cty.Value, len(ints))
	for i, n := range ints {
		elems[i] = cty.NumberIntVal(n)
	}
	return cty.SetVal(elems)
}

// interval is a closed run lo..hi of consecutive integers.
type interval struct{ lo, hi *big.Int }

// intRuns splits an integer set into maximal runs of consecutive values.
// ok is false when the set holds anything but integers.
func intRuns(v cty.Value) (runs []interval, ok bool) {
	if !v.Type().IsSetType() || !v.Type().ElementType().Equals(cty.Number) {
		return nil, false
	}
	ints := make([]*big.Int, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		if ev.IsNull() || !ev.IsKnown() {
			return nil, false
		}
		bf := ev.AsBigFloat()
		if !bf.IsInt() {
			return nil, false
		}
		n, _ := bf.Int(nil)
		ints = append(ints, n)
	}
	sort.Slice(ints, func(i, j int) bool { return ints[i].Cmp(ints[j]) < 0 })
	one := big.NewInt(1)
	for _, n := range ints {
		if len(runs) > 0 {
			last := &runs[len(runs)-1]
			next := new(big.Int).Add(last.hi, one)
			if next.Cmp(n) == 0 {
				last.hi = n
				continue
			}
		}
		runs = append(runs, interval{lo: n, hi: n})
	}
	return runs, true
}

// Interval reports whether v is a non-empty contiguous integer set and
// returns its bounds.
func Interval(v cty.Value) (lo, hi *big.Int, ok bool) {
	runs, ok := intRuns(v)
	if !ok || len(runs) != 1 {
		return nil, nil, false
	}
	return runs[0].lo, runs[0].hi, true
}

// sortedElements returns set elements in a stable order: numbers ascending,
// strings lexically, enums by ordinal then name.
func sortedElements(v cty.Value) []cty.Value {
	elems := make([]cty.Value, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		elems = append(elems, ev)
	}
	sort.SliceStable(elems, func(i, j int) bool {
		a, b := elems[i], elems[j]
		switch {
		case a.Type().Equals(cty.Number) && b.Type().Equals(cty.Number):
			return a.AsBigFloat().Cmp(b.AsBigFloat()) < 0
		case a.Type().Equals(cty.String) && b.Type().Equals(cty.String):
			return a.AsString() < b.AsString()
		}
		ea, okA := AsEnum(a)
		eb, okB := AsEnum(b)
		if okA && okB {
			if ea.Ordinal != eb.Ordinal {
				return ea.Ordinal < eb.Ordinal
			}
			return ea.String() < eb.String()
		}
		return false
	})
	return elems
}
