package value

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// numberText renders a cty number: integers exactly, floats in the shortest
// form that round-trips. forceDecimal appends ".0" to integral floats.
func numberText(v cty.Value, forceDecimal bool) string {
	bf := v.AsBigFloat()
	if bf.IsInf() {
		if bf.Sign() < 0 {
			return "-infinity"
		}
		return "infinity"
	}
	if bf.IsInt() {
		n, _ := bf.Int(nil)
		s := n.String()
		if forceDecimal {
			s += ".0"
		}
		return s
	}
	f, _ := bf.Float64()
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func bigIntText(n *big.Int) string { return n.String() }
