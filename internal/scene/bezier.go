package scene

// CurveSegments is the number of segments a cable curve is drawn with.
const CurveSegments = 26

// Quartic evaluates the quartic Bezier curve through control points p at t
// by repeated linear interpolation.
func Quartic(p [5]Vec3, t float64) Vec3 {
	pts := p
	for n := len(pts) - 1; n > 0; n-- {
		for i := 0; i < n; i++ {
			pts[i] = pts[i].Lerp(pts[i+1], t)
		}
	}
	return pts[0]
}

// Curve samples the quartic curve at segments+1 evenly spaced points,
// including both ends.
func Curve(p [5]Vec3, segments int) []Vec3 {
	if segments < 1 {
		segments = 1
	}
	out := make([]Vec3, segments+1)
	for i := range out {
		out[i] = Quartic(p, float64(i)/float64(segments))
	}
	return out
}
