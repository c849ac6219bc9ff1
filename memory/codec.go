package memory

import (
	"encoding/binary"

	"github.com/spacejam/seer/arch"
	"github.com/spacejam/seer/value"
)

// encodeUint128 renders v as size raw bytes in a's byte order, using
// arch.Architecture.PutUintN for the widths it already covers (1, 2,
// 4, 8) and composing two such halves for the 16-byte i128/u128 case.
func encodeUint128(v value.Uint128, size uint64, a *arch.Architecture) []byte {
	buf := make([]byte, size)
	if size <= 8 {
		a.PutUintN(buf, v.Lo)
		return buf
	}
	var lo, hi [8]byte
	a.PutUintN(lo[:], v.Lo)
	a.PutUintN(hi[:], v.Hi)
	if isLittleEndian(a) {
		copy(buf[0:8], lo[:])
		copy(buf[8:16], hi[:])
	} else {
		copy(buf[0:8], hi[:])
		copy(buf[8:16], lo[:])
	}
	return buf
}

// decodeUint128 is encodeUint128's inverse.
func decodeUint128(raw []byte, a *arch.Architecture) value.Uint128 {
	if len(raw) <= 8 {
		return value.NewUint128(a.UintN(raw))
	}
	var lo, hi []byte
	if isLittleEndian(a) {
		lo, hi = raw[0:8], raw[8:16]
	} else {
		hi, lo = raw[0:8], raw[8:16]
	}
	return value.Uint128{Lo: a.UintN(lo), Hi: a.UintN(hi)}
}

func isLittleEndian(a *arch.Architecture) bool { return a.ByteOrder == binary.LittleEndian }
