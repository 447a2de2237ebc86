package product

import "fmt"

// Kind is the value type tag carried by every port.
type Kind int

const (
	// KindAny is accepted by inlets that handle every product shape.
	KindAny Kind = iota
	// KindVector tags Vector products.
	KindVector
	// KindMatrix tags *Matrix products.
	KindMatrix
	// KindSpline tags *Spline products.
	KindSpline
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindVector:
		return "vector"
	case KindMatrix:
		return "matrix"
	case KindSpline:
		return "spline"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the textual form used in graph files back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "any", "":
		return KindAny, nil
	case "vector":
		return KindVector, nil
	case "matrix":
		return KindMatrix, nil
	case "spline":
		return KindSpline, nil
	default:
		return KindAny, fmt.Errorf("unknown product kind %q", s)
	}
}

// KindOf reports the Kind of a stored product. Nil and unknown values map to
// KindAny.
func KindOf(p any) Kind {
	switch p.(type) {
	case Vector, *Vector:
		return KindVector
	case *Matrix:
		return KindMatrix
	case *Spline:
		return KindSpline
	default:
		return KindAny
	}
}

// conversions lists the explicit conversion capabilities between kinds.
var conversions = map[[2]Kind]bool{
	{KindVector, KindMatrix}: true,
	{KindMatrix, KindVector}: true,
}

// Compatible reports whether an outlet of kind from may feed an inlet of kind to.
func Compatible(from, to Kind) bool {
	if from == to || to == KindAny {
		return true
	}
	return conversions[[2]Kind{from, to}]
}

// Convert adapts p to the requested kind. It returns false when no conversion
// exists. The resolution is only used when a vector is widened into a matrix.
func Convert(p any, to Kind, resolution int) (any, bool) {
	if p == nil {
		return nil, true
	}
	from := KindOf(p)
	if from == to || to == KindAny {
		return p, true
	}
	switch {
	case from == KindVector && to == KindMatrix:
		v := AsVector(p)
		m := NewMatrix(resolution)
		m.Fill(v.X())
		return m, true
	case from == KindMatrix && to == KindVector:
		return Scalar(p.(*Matrix).Mean()), true
	}
	return nil, false
}
