package product

// Spline is an ordered polyline of control points.
type Spline struct {
	Points []Vector
}

// Clone returns a copy that shares no backing storage with s.
func (s *Spline) Clone() *Spline {
	if s == nil {
		return nil
	}
	return &Spline{Points: append([]Vector(nil), s.Points...)}
}
