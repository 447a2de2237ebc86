package calc

import (
	"math"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/tilegraph/internal/product"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Calculator is an immutable parsed formula.
type Calculator struct {
	text  string
	expr  hclsyntax.Expression
	diags hcl.Diagnostics

	references  []string
	functions   []string
	literalDims int
}

// Parse builds a Calculator from text. It never fails; problems are kept on
// the returned value and reported by CheckValidity.
func Parse(text string) *Calculator {
	c := &Calculator{text: text}

	if strings.TrimSpace(text) == "" {
		c.diags = hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Empty expression",
			Detail:   "The formula has no content.",
		}}
		return c
	}

	expr, diags := hclsyntax.ParseExpression([]byte(text), "expression", hcl.InitialPos)
	c.diags = diags
	if expr == nil {
		return c
	}
	c.expr = expr

	// References are collected even from a broken parse so that the inlets of
	// a node survive while its formula is being edited.
	c.references = rootNames(expr.Variables())

	a := &analysis{funcs: make(map[string]struct{})}
	a.walk(expr)
	c.functions = sortedKeys(a.funcs)
	c.literalDims = a.vecDims
	if !diags.HasErrors() {
		c.diags = append(c.diags, a.diags...)
	}
	return c
}

// Text returns the source text.
func (c *Calculator) Text() string {
	return c.text
}

// CheckValidity performs the structural and semantic checks (syntax,
// unknown functions, arity, unsupported constructs) without evaluating.
func (c *Calculator) CheckValidity() (bool, error) {
	if c.diags.HasErrors() {
		return false, c.diags
	}
	return true, nil
}

// References returns the sorted, unique variable names the formula reads.
func (c *Calculator) References() []string {
	return append([]string(nil), c.references...)
}

// CalledFunctions returns the sorted, unique function names the formula calls.
func (c *Calculator) CalledFunctions() []string {
	return append([]string(nil), c.functions...)
}

// Calculate evaluates the formula. Names missing from bindings are the zero
// vector. Invalid formulas and runtime failures yield the zero vector.
func (c *Calculator) Calculate(bindings map[string]product.Vector) product.Vector {
	v, _ := c.Evaluate(bindings)
	return v
}

// Evaluate is Calculate with the failure reason exposed. The returned vector
// is always usable.
func (c *Calculator) Evaluate(bindings map[string]product.Vector) (product.Vector, error) {
	dims := max(c.literalDims, 1)
	for _, name := range c.references {
		if v, ok := bindings[name]; ok {
			dims = max(dims, v.Width())
		}
	}
	out := product.Vector{Dims: dims}

	if ok, err := c.CheckValidity(); !ok {
		return out, err
	}

	for i := 0; i < dims; i++ {
		vars := make(map[string]cty.Value, len(c.references))
		for _, name := range c.references {
			vars[name] = cty.NumberFloatVal(component(bindings[name], i))
		}
		evalCtx := &hcl.EvalContext{
			Variables: vars,
			Functions: componentFunctions[i],
		}

		val, diags := c.expr.Value(evalCtx)
		if diags.HasErrors() {
			return product.Vector{Dims: dims}, diags
		}
		f, err := toFloat(val)
		if err != nil {
			return product.Vector{Dims: dims}, err
		}
		out.C[i] = f
	}

	if name, ok := c.passthrough(); ok {
		out.Ref = bindings[name].Ref
	}
	return out, nil
}

// passthrough reports whether the formula is a bare variable reference, in
// which case the variable's object reference is carried to the result.
func (c *Calculator) passthrough() (string, bool) {
	expr := c.expr
	for {
		p, ok := expr.(*hclsyntax.ParenthesesExpr)
		if !ok {
			break
		}
		expr = p.Expression
	}
	if t, ok := expr.(*hclsyntax.ScopeTraversalExpr); ok && len(t.Traversal) == 1 {
		return t.Traversal.RootName(), true
	}
	return "", false
}

// component picks component i of v, promoting one-component vectors.
func component(v product.Vector, i int) float64 {
	var f float64
	if v.Width() == 1 {
		f = v.C[0]
	} else {
		f = v.C[i]
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toFloat(val cty.Value) (float64, error) {
	if val.IsNull() || !val.IsKnown() {
		return 0, nil
	}
	if val.Type() == cty.Bool {
		if val.True() {
			return 1, nil
		}
		return 0, nil
	}
	num, err := convert.Convert(val, cty.Number)
	if err != nil {
		return 0, err
	}
	f, _ := num.AsBigFloat().Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func rootNames(traversals []hcl.Traversal) []string {
	seen := make(map[string]struct{}, len(traversals))
	for _, t := range traversals {
		seen[t.RootName()] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
