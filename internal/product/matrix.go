package product

import "math"

// Matrix is a square field of Resolution x Resolution samples covering one tile.
type Matrix struct {
	Resolution int
	Data       []float64
}

// NewMatrix allocates a zeroed matrix. A non-positive resolution yields a
// single-sample matrix.
func NewMatrix(resolution int) *Matrix {
	resolution = max(resolution, 1)
	return &Matrix{
		Resolution: resolution,
		Data:       make([]float64, resolution*resolution),
	}
}

// At returns the sample at column x, row z.
func (m *Matrix) At(x, z int) float64 {
	return m.Data[z*m.Resolution+x]
}

// Set writes the sample at column x, row z.
func (m *Matrix) Set(x, z int, v float64) {
	m.Data[z*m.Resolution+x] = v
}

// Fill sets every sample to v.
func (m *Matrix) Fill(v float64) {
	for i := range m.Data {
		m.Data[i] = v
	}
}

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	if m == nil {
		return nil
	}
	c := &Matrix{Resolution: m.Resolution, Data: make([]float64, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

// Mean returns the average sample value.
func (m *Matrix) Mean() float64 {
	if m == nil || len(m.Data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range m.Data {
		sum += v
	}
	return sum / float64(len(m.Data))
}

// MinMax returns the smallest and largest samples.
func (m *Matrix) MinMax() (lo, hi float64) {
	if m == nil || len(m.Data) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range m.Data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Equal reports sample-wise equality.
func (m *Matrix) Equal(o *Matrix) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Resolution != o.Resolution || len(m.Data) != len(o.Data) {
		return false
	}
	for i := range m.Data {
		if m.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}
