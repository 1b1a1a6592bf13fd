package vec

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func approxVec(a, b Vector3) bool {
	return approx(a.X, b.X) && approx(a.Y, b.Y) && approx(a.Z, b.Z)
}

func TestVector3_Arithmetic(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: 4, Y: 5, Z: 6}

	if got := a.Add(b); got != (Vector3{X: 5, Y: 7, Z: 9}) {
		t.Fatalf("Add = %+v", got)
	}
	if got := b.Sub(a); got != Splat3(3) {
		t.Fatalf("Sub = %+v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Fatalf("Dot = %v", got)
	}
	if got := (Vector3{X: 3, Y: 4}).Length(); got != 5 {
		t.Fatalf("Length = %v", got)
	}
}

func TestVector3_NormalizeZero(t *testing.T) {
	if got := (Vector3{}).Normalize(); got != (Vector3{}) {
		t.Fatalf("Normalize(zero) = %+v", got)
	}
	if got := (Vector3{Y: 10}).Normalize(); got != (Vector3{Y: 1}) {
		t.Fatalf("Normalize = %+v", got)
	}
}

func TestQuaternion_Rotate(t *testing.T) {
	tests := []struct {
		name string
		q    Quaternion
		in   Vector3
		want Vector3
	}{
		{"identity", Identity, Vector3{X: 1, Y: 2, Z: 3}, Vector3{X: 1, Y: 2, Z: 3}},
		{"yaw 90", FromEuler(math.Pi/2, 0, 0), Vector3{X: 1}, Vector3{Z: -1}},
		{"pitch 90", FromEuler(0, math.Pi/2, 0), Vector3{Y: 1}, Vector3{Z: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Rotate(tt.in); !approxVec(got, tt.want) {
				t.Errorf("Rotate(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuaternion_MulIdentity(t *testing.T) {
	q := FromEuler(0.3, 0.2, 0.1)
	if got := q.Mul(Identity); got != q {
		t.Fatalf("q*I = %+v, want %+v", got, q)
	}
}
