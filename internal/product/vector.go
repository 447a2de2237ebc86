package product

import (
	"fmt"
	"strings"
)

// Vector is a small fixed-width numeric value. Dims records how many of the
// four components are meaningful (1-4); unused components are zero. Ref is
// an optional object reference slot that travels with the value.
type Vector struct {
	C    [4]float64
	Dims int
	Ref  any
}

// Scalar returns a one-component vector.
func Scalar(x float64) Vector {
	return Vector{C: [4]float64{x}, Dims: 1}
}

// Vec builds a vector from up to four components. Extra components are
// dropped.
func Vec(c ...float64) Vector {
	var v Vector
	n := min(len(c), 4)
	copy(v.C[:], c[:n])
	v.Dims = max(n, 1)
	return v
}

// AsVector extracts a Vector from a product, returning the zero vector for
// anything else.
func AsVector(p any) Vector {
	switch v := p.(type) {
	case Vector:
		return v
	case *Vector:
		if v != nil {
			return *v
		}
	}
	return Vector{Dims: 1}
}

// X returns the first component.
func (v Vector) X() float64 { return v.C[0] }

// Width returns Dims clamped to the valid 1-4 range.
func (v Vector) Width() int {
	return min(max(v.Dims, 1), 4)
}

// Equal compares components and dims. Ref is ignored.
func (v Vector) Equal(o Vector) bool {
	return v.C == o.C && v.Width() == o.Width()
}

func (v Vector) String() string {
	parts := make([]string, v.Width())
	for i := range parts {
		parts[i] = fmt.Sprintf("%g", v.C[i])
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
