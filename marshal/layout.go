package marshal

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/vec"
)

// Wire sizes of the fixed-layout structs. There is no padding: the size is
// the number of float32 fields times four.
const (
	SizeVector2    = 8
	SizeVector3    = 12
	SizeVector4    = 16
	SizeQuaternion = 16
)

var le = binary.LittleEndian

func putF32(b []byte, off int, v float32) {
	le.PutUint32(b[off:], math.Float32bits(v))
}

func f32(b []byte, off int) float32 {
	return math.Float32frombits(le.Uint32(b[off:]))
}

func need(b []byte, n int, what string) error {
	if len(b) < n {
		return errors.OutOfBounds(errors.PhaseMarshal, what, n, len(b))
	}
	return nil
}

// PutVector2 writes v as (x, y).
func PutVector2(b []byte, v vec.Vector2) error {
	if err := need(b, SizeVector2, "Vector2"); err != nil {
		return err
	}
	putF32(b, 0, v.X)
	putF32(b, 4, v.Y)
	return nil
}

// PutVector3 writes v as (x, y, z).
func PutVector3(b []byte, v vec.Vector3) error {
	if err := need(b, SizeVector3, "Vector3"); err != nil {
		return err
	}
	putF32(b, 0, v.X)
	putF32(b, 4, v.Y)
	putF32(b, 8, v.Z)
	return nil
}

// PutVector4 writes v as (x, y, z, w).
func PutVector4(b []byte, v vec.Vector4) error {
	if err := need(b, SizeVector4, "Vector4"); err != nil {
		return err
	}
	putF32(b, 0, v.X)
	putF32(b, 4, v.Y)
	putF32(b, 8, v.Z)
	putF32(b, 12, v.W)
	return nil
}

// PutQuaternion writes q as (w, x, y, z).
func PutQuaternion(b []byte, q vec.Quaternion) error {
	if err := need(b, SizeQuaternion, "Quaternion"); err != nil {
		return err
	}
	putF32(b, 0, q.W)
	putF32(b, 4, q.X)
	putF32(b, 8, q.Y)
	putF32(b, 12, q.Z)
	return nil
}

func Vector2At(b []byte) (vec.Vector2, error) {
	if err := need(b, SizeVector2, "Vector2"); err != nil {
		return vec.Vector2{}, err
	}
	return vec.Vector2{X: f32(b, 0), Y: f32(b, 4)}, nil
}

func Vector3At(b []byte) (vec.Vector3, error) {
	if err := need(b, SizeVector3, "Vector3"); err != nil {
		return vec.Vector3{}, err
	}
	return vec.Vector3{X: f32(b, 0), Y: f32(b, 4), Z: f32(b, 8)}, nil
}

func Vector4At(b []byte) (vec.Vector4, error) {
	if err := need(b, SizeVector4, "Vector4"); err != nil {
		return vec.Vector4{}, err
	}
	return vec.Vector4{X: f32(b, 0), Y: f32(b, 4), Z: f32(b, 8), W: f32(b, 12)}, nil
}

func QuaternionAt(b []byte) (vec.Quaternion, error) {
	if err := need(b, SizeQuaternion, "Quaternion"); err != nil {
		return vec.Quaternion{}, err
	}
	return vec.Quaternion{W: f32(b, 0), X: f32(b, 4), Y: f32(b, 8), Z: f32(b, 12)}, nil
}

// SizeOf returns the wire size of a fixed-layout value, or 0 when v has no
// fixed layout.
func SizeOf(v any) int {
	switch v.(type) {
	case vec.Vector2, *vec.Vector2:
		return SizeVector2
	case vec.Vector3, *vec.Vector3:
		return SizeVector3
	case vec.Vector4, *vec.Vector4:
		return SizeVector4
	case vec.Quaternion, *vec.Quaternion:
		return SizeQuaternion
	default:
		return 0
	}
}

// Encode returns the wire bytes of a fixed-layout value.
func Encode(v any) ([]byte, error) {
	n := SizeOf(v)
	if n == 0 {
		return nil, errors.TypeMismatch(errors.PhaseMarshal, "", "fixed-layout struct", fmt.Sprintf("%T", v))
	}
	b := make([]byte, n)
	var err error
	switch x := v.(type) {
	case vec.Vector2:
		err = PutVector2(b, x)
	case *vec.Vector2:
		err = PutVector2(b, *x)
	case vec.Vector3:
		err = PutVector3(b, x)
	case *vec.Vector3:
		err = PutVector3(b, *x)
	case vec.Vector4:
		err = PutVector4(b, x)
	case *vec.Vector4:
		err = PutVector4(b, *x)
	case vec.Quaternion:
		err = PutQuaternion(b, x)
	case *vec.Quaternion:
		err = PutQuaternion(b, *x)
	}
	return b, err
}

// Decode reads wire bytes into the fixed-layout value pointed to by out.
func Decode(b []byte, out any) error {
	var err error
	switch x := out.(type) {
	case *vec.Vector2:
		*x, err = Vector2At(b)
	case *vec.Vector3:
		*x, err = Vector3At(b)
	case *vec.Vector4:
		*x, err = Vector4At(b)
	case *vec.Quaternion:
		*x, err = QuaternionAt(b)
	default:
		return errors.TypeMismatch(errors.PhaseMarshal, "", "pointer to fixed-layout struct", fmt.Sprintf("%T", out))
	}
	return err
}

// Bool converts a wire boolean. Any non-zero value is true.
func Bool(v uint32) bool {
	return v != 0
}

// FromBool converts a boolean to its wire value.
func FromBool(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
