// Package marshal converts values across the script boundary.
//
// Fixed-layout structs travel as packed little-endian float32 fields with no
// padding:
//
//	Vector2     x y          8 bytes
//	Vector3     x y z       12 bytes
//	Vector4     x y z w     16 bytes
//	Quaternion  w x y z     16 bytes
//
// Booleans are 32-bit integers where any non-zero value is true. Strings are
// UTF-8 on the host side and either UTF-8 or UTF-16LE natively; malformed
// input is rejected with errors.KindInvalidUTF8 and never replaced.
//
// Key and MouseKey carry the engine's input code tables. Codes outside the
// table are rejected with errors.KindInvalidEnum.
//
// Refs are packed into a single uint64 for backends that pass scalars only:
//
//	v := marshal.PackRef(ref)   // gen<<32 | index
//	ref = marshal.UnpackRef(v)
package marshal
