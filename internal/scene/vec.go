package scene

import "math"

// Vec3 is a local-space vector. Rotations are Euler angles in degrees.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Lerp interpolates from v to o; t is not clamped.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}

// MoveTowards moves v toward target by at most maxDelta without overshooting.
// A negative maxDelta moves away from target.
func (v Vec3) MoveTowards(target Vec3, maxDelta float64) Vec3 {
	d := target.Sub(v)
	dist := d.Length()
	if dist == 0 || (maxDelta >= 0 && dist <= maxDelta) {
		return target
	}
	return v.Add(d.Scale(maxDelta / dist))
}

// Transform is the local placement of an object relative to its parent.
type Transform struct {
	Position Vec3
	Rotation Vec3
	Scale    Vec3
}

func Identity() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}
