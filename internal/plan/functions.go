package plan

import (
	"fmt"
	"math/big"

	"github.com/vk/mzngo/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
)

// rangeFunc builds the contiguous integer set lo..hi.
var rangeFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "lo", Type: cty.Number},
		{Name: "hi", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.Set(cty.Number)),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		lo, loAcc := args[0].AsBigFloat().Int64()
		hi, hiAcc := args[1].AsBigFloat().Int64()
		if !args[0].AsBigFloat().IsInt() || !args[1].AsBigFloat().IsInt() || loAcc != 0 || hiAcc != 0 {
			return cty.NilVal, fmt.Errorf("range bounds must be integers")
		}
		if _, ok := value.RangeLen(big.NewInt(lo), big.NewInt(hi)); !ok {
			return cty.NilVal, fmt.Errorf("range %d..%d has more than %d elements", lo, hi, value.MaxSetElements)
		}
		return value.RangeVal(lo, hi), nil
	},
})

// setFunc builds a set from its arguments, which must share one type.
var setFunc = function.New(&function.Spec{
	VarParam: &function.Parameter{Name: "elems", Type: cty.DynamicPseudoType},
	Type: func(args []cty.Value) (cty.Type, error) {
		if len(args) == 0 {
			return cty.Set(cty.Number), nil
		}
		types := make([]cty.Type, len(args))
		for i, a := range args {
			types[i] = a.Type()
		}
		elem, _ := convert.UnifyUnsafe(types)
		if elem == cty.NilType {
			return cty.NilType, fmt.Errorf("set elements must all have the same type")
		}
		return cty.Set(elem), nil
	},
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		if len(args) == 0 {
			return cty.SetValEmpty(retType.ElementType()), nil
		}
		elems := make([]cty.Value, len(args))
		for i, a := range args {
			v, err := convert.Convert(a, retType.ElementType())
			if err != nil {
				return cty.NilVal, function.NewArgError(i, err)
			}
			elems[i] = v
		}
		return cty.SetVal(elems), nil
	},
})

func functions() map[string]function.Function {
	return map[string]function.Function{
		"range": rangeFunc,
		"set":   setFunc,
	}
}
