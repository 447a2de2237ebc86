package calc

import (
	"errors"
	"math"
	"sort"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// componentFunctions holds one function table per vector component. They
// only differ in `vec`, which has to know which component it is producing.
var componentFunctions [4]map[string]function.Function

func init() {
	for i := range componentFunctions {
		componentFunctions[i] = map[string]function.Function{
			"abs":    stdlib.AbsoluteFunc,
			"ceil":   stdlib.CeilFunc,
			"floor":  stdlib.FloorFunc,
			"log":    stdlib.LogFunc,
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"pow":    stdlib.PowFunc,
			"sign":   stdlib.SignumFunc,
			"sqrt":   unaryFunction(math.Sqrt),
			"sin":    unaryFunction(math.Sin),
			"cos":    unaryFunction(math.Cos),
			"tan":    unaryFunction(math.Tan),
			"clamp":  ternaryFunction("x", "lo", "hi", clamp),
			"lerp":   ternaryFunction("a", "b", "t", lerp),
			"step":   binaryFunction("edge", "x", step),
			"vec":    vecFunction(i),
			"smooth": ternaryFunction("lo", "hi", "x", smoothstep),
		}
	}
}

// Functions returns the sorted names of every function a formula may call.
func Functions() []string {
	names := make([]string, 0, len(componentFunctions[0]))
	for name := range componentFunctions[0] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	errNotFinite    = errors.New("result is not a finite number")
	errModuloByZero = errors.New("modulo by zero")
)

// opModulo replaces the HCL modulo operator, which returns the dividend
// unchanged for a zero divisor.
var opModulo = &hclsyntax.Operation{
	Impl: function.New(&function.Spec{
		Params: []function.Parameter{numberParam("a"), numberParam("b")},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if argFloat(args[1]) == 0 {
				return cty.NilVal, errModuloByZero
			}
			return floatResult(math.Mod(argFloat(args[0]), argFloat(args[1])))
		},
	}),
	Type: cty.Number,
}

func numberParam(name string) function.Parameter {
	return function.Parameter{Name: name, Type: cty.Number}
}

func floatResult(f float64) (cty.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return cty.NilVal, errNotFinite
	}
	return cty.NumberFloatVal(f), nil
}

func argFloat(v cty.Value) float64 {
	f, _ := v.AsBigFloat().Float64()
	return f
}

func unaryFunction(fn func(float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{numberParam("x")},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return floatResult(fn(argFloat(args[0])))
		},
	})
}

func binaryFunction(a, b string, fn func(float64, float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{numberParam(a), numberParam(b)},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return floatResult(fn(argFloat(args[0]), argFloat(args[1])))
		},
	})
}

func ternaryFunction(a, b, c string, fn func(float64, float64, float64) float64) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{numberParam(a), numberParam(b), numberParam(c)},
		Type:   function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return floatResult(fn(argFloat(args[0]), argFloat(args[1]), argFloat(args[2])))
		},
	})
}

// vecFunction returns the `vec` constructor specialised for one component.
// A single argument is broadcast; missing trailing components are zero.
func vecFunction(component int) function.Function {
	return function.New(&function.Spec{
		Params:   []function.Parameter{numberParam("x")},
		VarParam: &function.Parameter{Name: "rest", Type: cty.Number},
		Type:     function.StaticReturnType(cty.Number),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			switch {
			case len(args) == 1:
				return args[0], nil
			case component < len(args):
				return args[component], nil
			default:
				return cty.Zero, nil
			}
		},
	})
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func step(edge, x float64) float64 {
	if x < edge {
		return 0
	}
	return 1
}

func smoothstep(lo, hi, x float64) float64 {
	if hi == lo {
		return step(lo, x)
	}
	t := clamp((x-lo)/(hi-lo), 0, 1)
	return t * t * (3 - 2*t)
}
