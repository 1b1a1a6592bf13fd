package marshal

import "github.com/wippyai/scriptlib/handle"

// PackRef packs a ref into the 64-bit scalar used by backends that cannot
// carry structs, with the generation in the high half.
func PackRef(r handle.Ref) uint64 {
	return uint64(r.Gen)<<32 | uint64(r.Index)
}

// UnpackRef reverses PackRef. A zero scalar yields the zero Ref.
func UnpackRef(v uint64) handle.Ref {
	return handle.Ref{Index: uint32(v), Gen: uint32(v >> 32)}
}
