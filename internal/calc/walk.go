package calc

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// analysis walks a parsed formula, collecting called functions and rejecting
// the parts of the HCL grammar that have no numeric meaning.
type analysis struct {
	funcs   map[string]struct{}
	vecDims int
	diags   hcl.Diagnostics
}

func (a *analysis) fail(rng hcl.Range, summary, detail string) {
	a.diags = append(a.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  rng.Ptr(),
	})
}

func (a *analysis) walk(expr hclsyntax.Expression) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		if t := e.Val.Type(); t != cty.Number && t != cty.Bool {
			a.fail(e.Range(), "Unsupported literal", fmt.Sprintf("Only numbers and bools are allowed, got %s.", t.FriendlyName()))
		}
	case *hclsyntax.ScopeTraversalExpr:
		if len(e.Traversal) != 1 {
			a.fail(e.Range(), "Unsupported traversal", fmt.Sprintf("Variable %q cannot be indexed or have attributes.", e.Traversal.RootName()))
		}
	case *hclsyntax.FunctionCallExpr:
		a.call(e)
		for _, arg := range e.Args {
			a.walk(arg)
		}
	case *hclsyntax.BinaryOpExpr:
		if e.Op == hclsyntax.OpModulo {
			e.Op = opModulo
		}
		a.walk(e.LHS)
		a.walk(e.RHS)
	case *hclsyntax.UnaryOpExpr:
		a.walk(e.Val)
	case *hclsyntax.ConditionalExpr:
		a.walk(e.Condition)
		a.walk(e.TrueResult)
		a.walk(e.FalseResult)
	case *hclsyntax.ParenthesesExpr:
		a.walk(e.Expression)
	default:
		a.fail(expr.Range(), "Unsupported expression", fmt.Sprintf("Construct %T is not part of the formula language.", expr))
	}
}

// call validates the function name and argument count.
func (a *analysis) call(e *hclsyntax.FunctionCallExpr) {
	a.funcs[e.Name] = struct{}{}

	fn, ok := componentFunctions[0][e.Name]
	if !ok {
		a.fail(e.NameRange, "Unknown function", fmt.Sprintf("There is no function named %q.", e.Name))
		return
	}
	if e.ExpandFinal {
		a.fail(e.Range(), "Unsupported expansion", "Argument expansion with ... is not allowed.")
		return
	}

	want := len(fn.Params())
	got := len(e.Args)
	variadic := fn.VarParam() != nil
	switch {
	case got < want, !variadic && got > want:
		a.fail(e.Range(), "Wrong number of arguments", fmt.Sprintf("Function %q expects %s, got %d.", e.Name, arity(want, variadic), got))
	case variadic && want == 0 && got == 0:
		a.fail(e.Range(), "Wrong number of arguments", fmt.Sprintf("Function %q expects at least one argument.", e.Name))
	}

	if e.Name == "vec" {
		if got > 4 {
			a.fail(e.Range(), "Wrong number of arguments", "Function \"vec\" accepts at most 4 components.")
		}
		a.vecDims = max(a.vecDims, min(got, 4))
	}
}

func arity(n int, variadic bool) string {
	if variadic {
		return fmt.Sprintf("at least %d argument(s)", n)
	}
	return fmt.Sprintf("%d argument(s)", n)
}
