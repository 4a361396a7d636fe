package hclspace

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/opfuzz/internal/param"
)

// pow2RangeFunc returns the powers of two in [lo, hi] as a list.
var pow2RangeFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "lo", Type: cty.Number},
		{Name: "hi", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.Number)),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		var lo, hi int64
		if err := gocty.FromCtyValue(args[0], &lo); err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		if err := gocty.FromCtyValue(args[1], &hi); err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		powers := param.PowersOfTwo(lo, hi)
		if len(powers) == 0 {
			return cty.ListValEmpty(cty.Number), nil
		}
		vals := make([]cty.Value, len(powers))
		for i, p := range powers {
			vals[i] = cty.NumberIntVal(p)
		}
		return cty.ListVal(vals), nil
	},
})

// evalContext exposes vars and the helper functions to expressions.
func evalContext(vars map[string]int64) *hcl.EvalContext {
	variables := make(map[string]cty.Value, len(vars))
	for name, v := range vars {
		variables[name] = cty.NumberIntVal(v)
	}
	return &hcl.EvalContext{
		Variables: variables,
		Functions: map[string]function.Function{
			"pow2_range": pow2RangeFunc,
			"pow":        stdlib.PowFunc,
			"min":        stdlib.MinFunc,
			"max":        stdlib.MaxFunc,
			"floor":      stdlib.FloorFunc,
			"log":        stdlib.LogFunc,
		},
	}
}
