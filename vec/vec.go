// Package vec defines the fixed-layout numeric value types exchanged with the
// native engine.
//
// The field order of each struct is part of the boundary contract: vectors are
// laid out (x, y, z[, w]) and quaternions (w, x, y, z), all float32 with no
// padding. See the marshal package for the byte encoding.
package vec

import "math"

// Vector2 is a 2 dimensional vector.
type Vector2 struct {
	X float32
	Y float32
}

// Vector3 is a 3 dimensional vector.
type Vector3 struct {
	X float32
	Y float32
	Z float32
}

// Vector4 is a 4 dimensional vector.
type Vector4 struct {
	X float32
	Y float32
	Z float32
	W float32
}

// Quaternion is a rotation. Note the leading W.
type Quaternion struct {
	W float32
	X float32
	Y float32
	Z float32
}

// Identity is the quaternion representing no rotation.
var Identity = Quaternion{W: 1}

// Splat3 returns a Vector3 with all components set to v.
func Splat3(v float32) Vector3 {
	return Vector3{X: v, Y: v, Z: v}
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vector3) Scale(s float32) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vector3) Dot(o Vector3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vector3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vector3) Normalize() Vector3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// FromEuler builds a quaternion from yaw/pitch/roll angles in radians
// (rotation about Y, X and Z respectively).
func FromEuler(yaw, pitch, roll float32) Quaternion {
	cy, sy := cosSin(yaw * 0.5)
	cp, sp := cosSin(pitch * 0.5)
	cr, sr := cosSin(roll * 0.5)
	return Quaternion{
		W: cy*cp*cr + sy*sp*sr,
		X: cy*sp*cr + sy*cp*sr,
		Y: sy*cp*cr - cy*sp*sr,
		Z: cy*cp*sr - sy*sp*cr,
	}
}

// Rotate applies q to v.
func (q Quaternion) Rotate(v Vector3) Vector3 {
	u := Vector3{X: q.X, Y: q.Y, Z: q.Z}
	t := cross(u, v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(cross(u, t))
}

// Mul composes two rotations; the result applies o first, then q.
func (q Quaternion) Mul(o Quaternion) Quaternion {
	return Quaternion{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

func cross(a, b Vector3) Vector3 {
	return Vector3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func cosSin(a float32) (float32, float32) {
	s, c := math.Sincos(float64(a))
	return float32(c), float32(s)
}
