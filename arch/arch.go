// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arch describes the width and byte order of the guest
// machine the evaluator interprets for. Unlike the debugger this
// package was lifted from, there is no real traced process to plant
// breakpoints in — the fields here exist purely so memory and value
// conversions agree on pointer width and endianness.
package arch

import "encoding/binary"

// Architecture holds the width/endianness facts the rest of the
// evaluator needs when converting between raw bytes and scalars.
type Architecture struct {
	// PointerSize is the size of a pointer, in bytes (4 or 8).
	PointerSize int
	// ByteOrder is the byte order used for all multi-byte scalars.
	ByteOrder binary.ByteOrder
}

// Uintptr decodes a pointer-width unsigned integer from buf.
func (a *Architecture) Uintptr(buf []byte) uint64 {
	if len(buf) != a.PointerSize {
		panic("arch: bad pointer width")
	}
	switch a.PointerSize {
	case 4:
		return uint64(a.ByteOrder.Uint32(buf))
	case 8:
		return a.ByteOrder.Uint64(buf)
	}
	panic("arch: unsupported pointer size")
}

// PutUintptr encodes a pointer-width unsigned integer into buf.
func (a *Architecture) PutUintptr(buf []byte, v uint64) {
	if len(buf) != a.PointerSize {
		panic("arch: bad pointer width")
	}
	switch a.PointerSize {
	case 4:
		a.ByteOrder.PutUint32(buf, uint32(v))
	case 8:
		a.ByteOrder.PutUint64(buf, v)
	}
}

// UintN decodes an unsigned integer of n bytes (1, 2, 4, or 8) from
// the low end of buf, zero-extended.
func (a *Architecture) UintN(buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(a.ByteOrder.Uint16(buf))
	case 4:
		return uint64(a.ByteOrder.Uint32(buf))
	case 8:
		return a.ByteOrder.Uint64(buf)
	}
	panic("arch: unsupported scalar width")
}

// PutUintN encodes v into buf, sized 1, 2, 4, or 8 bytes.
func (a *Architecture) PutUintN(buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		a.ByteOrder.PutUint16(buf, uint16(v))
	case 4:
		a.ByteOrder.PutUint32(buf, uint32(v))
	case 8:
		a.ByteOrder.PutUint64(buf, v)
	default:
		panic("arch: unsupported scalar width")
	}
}

// AMD64 is the only guest architecture this evaluator targets today;
// kept as a value (not a pointer) so zero-value Architecture{} callers
// get a clear panic instead of silently behaving like AMD64.
var AMD64 = Architecture{
	PointerSize: 8,
	ByteOrder:   binary.LittleEndian,
}

// I386 describes a 32-bit little-endian guest.
var I386 = Architecture{
	PointerSize: 4,
	ByteOrder:   binary.LittleEndian,
}
