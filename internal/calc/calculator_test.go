package calc_test

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/tilegraph/internal/calc"
	"github.com/vk/tilegraph/internal/product"
)

// requireVector compares components approximately and dims exactly.
func requireVector(t *testing.T, expected, actual product.Vector) {
	t.Helper()
	if diff := cmp.Diff(expected.C, actual.C, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("vector components mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, expected.Width(), actual.Width(), "vector dims mismatch")
}

func TestCalculate_PrecedenceScenario(t *testing.T) {
	c := calc.Parse("a + b * 2")
	ok, err := c.CheckValidity()
	require.True(t, ok)
	require.NoError(t, err)

	got := c.Calculate(map[string]product.Vector{
		"a": product.Vec(1, 0, 0, 0),
		"b": product.Vec(3, 0, 0, 0),
	})
	requireVector(t, product.Vec(7, 0, 0, 0), got)
	assert.Equal(t, []string{"a", "b"}, c.References())
}

func TestCalculate_Table(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		bindings map[string]product.Vector
		expected product.Vector
	}{
		{
			name:     "scalar broadcasts over vector",
			text:     "a * k",
			bindings: map[string]product.Vector{"a": product.Vec(1, 2, 3), "k": product.Scalar(2)},
			expected: product.Vec(2, 4, 6),
		},
		{
			name:     "missing binding is zero",
			text:     "a + missing",
			bindings: map[string]product.Vector{"a": product.Scalar(5)},
			expected: product.Scalar(5),
		},
		{
			name:     "vec literal widens",
			text:     "vec(1, 2, 3) + a",
			bindings: map[string]product.Vector{"a": product.Scalar(1)},
			expected: product.Vec(2, 3, 4),
		},
		{
			name:     "functions",
			text:     "clamp(max(a, 2), 0, 3) + abs(-1) + floor(1.7)",
			bindings: map[string]product.Vector{"a": product.Scalar(10)},
			expected: product.Scalar(5),
		},
		{
			name:     "conditional and comparison",
			text:     "a > 1 ? a : 0",
			bindings: map[string]product.Vector{"a": product.Vec(0, 2)},
			expected: product.Vec(0, 2),
		},
		{
			name:     "bool result",
			text:     "a == 3",
			bindings: map[string]product.Vector{"a": product.Scalar(3)},
			expected: product.Scalar(1),
		},
		{
			name:     "modulo",
			text:     "a % 3",
			bindings: map[string]product.Vector{"a": product.Vec(7, -7)},
			expected: product.Vec(1, -1),
		},
		{
			name:     "division by zero yields zero",
			text:     "1 / a",
			bindings: map[string]product.Vector{"a": product.Scalar(0)},
			expected: product.Scalar(0),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := calc.Parse(tc.text)
			ok, err := c.CheckValidity()
			require.True(t, ok, "unexpected validity error: %v", err)
			requireVector(t, tc.expected, c.Calculate(tc.bindings))
		})
	}
}

func TestEvaluate_ReportsRuntimeFailures(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"division by zero", "a / b", "not a finite number"},
		{"modulo by zero", "a % b", "modulo by zero"},
		{"modulo by zero in a nested expression", "1 + (a % (b * 2))", "modulo by zero"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := calc.Parse(tc.text)
			ok, err := c.CheckValidity()
			require.True(t, ok, "unexpected validity error: %v", err)

			got, err := c.Evaluate(map[string]product.Vector{"a": product.Scalar(5), "b": product.Scalar(0)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			requireVector(t, product.Scalar(0), got)
		})
	}
}

func TestCheckValidity_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		summary string
	}{
		{"empty", "   ", "Empty expression"},
		{"unmatched paren", "(a + b", ""},
		{"unknown function", "frobnicate(a)", "Unknown function"},
		{"too many arguments", "sqrt(a, b)", "Wrong number of arguments"},
		{"too few arguments", "clamp(a)", "Wrong number of arguments"},
		{"string literal", `"text"`, "Unsupported expression"},
		{"attribute access", "a.x", "Unsupported traversal"},
		{"tuple", "[1, 2]", "Unsupported expression"},
		{"too many vec components", "vec(1, 2, 3, 4, 5)", "Wrong number of arguments"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := calc.Parse(tc.text)
			ok, err := c.CheckValidity()
			require.False(t, ok)
			require.Error(t, err)
			if tc.summary != "" {
				assert.Contains(t, err.Error(), tc.summary)
			}
			assert.Equal(t, product.Vector{Dims: 1}.C, c.Calculate(map[string]product.Vector{"a": product.Scalar(4)}).C)
		})
	}
}

func TestReferences_SurviveBrokenParse(t *testing.T) {
	c := calc.Parse("a + ")
	ok, _ := c.CheckValidity()
	require.False(t, ok)
	assert.Contains(t, c.References(), "a")
}

func TestParse_Deterministic(t *testing.T) {
	text := "lerp(a, b, t) + a * sin(c)"
	first := calc.Parse(text)
	second := calc.Parse(text)

	assert.Equal(t, first.References(), second.References())
	assert.Equal(t, []string{"a", "b", "c", "t"}, first.References())
	assert.Equal(t, []string{"lerp", "sin"}, first.CalledFunctions())

	bindings := map[string]product.Vector{"a": product.Vec(1, 2), "b": product.Scalar(3), "t": product.Scalar(0.5), "c": product.Scalar(1)}
	snapshot := map[string]product.Vector{}
	for k, v := range bindings {
		snapshot[k] = v
	}
	assert.Equal(t, first.Calculate(bindings), first.Calculate(bindings))
	assert.Equal(t, first.Calculate(bindings), second.Calculate(bindings))
	assert.Equal(t, snapshot, bindings, "Calculate must not modify bindings")
}

func TestCalculate_PassesObjectReference(t *testing.T) {
	type marker struct{ name string }
	ref := &marker{name: "tree"}

	got := calc.Parse("(a)").Calculate(map[string]product.Vector{"a": {C: [4]float64{1}, Dims: 1, Ref: ref}})
	assert.Same(t, ref, got.Ref)

	got = calc.Parse("a + 1").Calculate(map[string]product.Vector{"a": {C: [4]float64{1}, Dims: 1, Ref: ref}})
	assert.Nil(t, got.Ref)
}

func TestCalculate_ConcurrentUse(t *testing.T) {
	c := calc.Parse("a * 2 + vec(0, 1)")
	var wg sync.WaitGroup
	numGoroutines := 50
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			got := c.Calculate(map[string]product.Vector{"a": product.Scalar(float64(i))})
			assert.Equal(t, float64(2*i), got.C[0])
			assert.Equal(t, float64(2*i+1), got.C[1])
		}(i)
	}
	wg.Wait()
}

func TestFunctions_ListIsSorted(t *testing.T) {
	names := calc.Functions()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "vec")
}

func TestFunctions_EveryFunctionEvaluates(t *testing.T) {
	calls := map[string]struct {
		text     string
		expected float64
	}{
		"abs":    {"abs(-2)", 2},
		"ceil":   {"ceil(1.2)", 2},
		"clamp":  {"clamp(5, 0, 3)", 3},
		"cos":    {"cos(0)", 1},
		"floor":  {"floor(1.8)", 1},
		"lerp":   {"lerp(2, 4, 0.5)", 3},
		"log":    {"log(8, 2)", 3},
		"max":    {"max(1, 4, 2)", 4},
		"min":    {"min(3, -1)", -1},
		"pow":    {"pow(2, 3)", 8},
		"sign":   {"sign(-3)", -1},
		"sin":    {"sin(0)", 0},
		"smooth": {"smooth(0, 1, 0.5)", 0.5},
		"sqrt":   {"sqrt(9)", 3},
		"step":   {"step(1, 2)", 1},
		"tan":    {"tan(0)", 0},
		"vec":    {"vec(6)", 6},
	}
	require.ElementsMatch(t, calc.Functions(), keys(calls), "every function needs a case")

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			got, err := calc.Parse(call.text).Evaluate(nil)
			require.NoError(t, err)
			assert.InDelta(t, call.expected, got.C[0], 1e-9)
		})
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
