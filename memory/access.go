package memory

import (
	"math"

	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/value"
)

// ReadPrimVal reads a size-byte scalar at ptr. A read that begins
// exactly at a recorded relocation and spans exactly one pointer width
// yields a Pointer PrimVal; a read that overlaps a relocation without
// starting at it fails ReadPointerAsBytes; any undefined byte in range
// fails ReadUndefBytes (spec §4.3).
func (m *Memory) ReadPrimVal(ptr value.Pointer, size uint64) (value.PrimVal, error) {
	a, err := m.lookup(ptr.Alloc)
	if err != nil {
		return value.PrimVal{}, err
	}
	offset, err := m.concreteOffset(a, ptr, size)
	if err != nil {
		return value.PrimVal{}, err
	}

	if relID, ok := a.relocationAt(offset); ok && size == uint64(m.arch.PointerSize) {
		return value.FromPointer(value.NewPointer(relID, 0)), nil
	}
	if a.relocationOverlapping(offset, size, uint64(m.arch.PointerSize)) {
		return value.PrimVal{}, evalerror.New(evalerror.ReadPointerAsBytes, "")
	}
	if _, ok := a.relocationAt(offset); ok && size != uint64(m.arch.PointerSize) {
		return value.PrimVal{}, evalerror.New(evalerror.ReadPointerAsBytes, "")
	}
	if !a.allDefined(offset, size) {
		return value.PrimVal{}, evalerror.New(evalerror.ReadUndefBytes, "")
	}

	if hasAbstractByte(a.Bytes[offset : offset+size]) {
		return value.FromAbstract(widenToWord(a.Bytes[offset : offset+size])), nil
	}

	raw := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		raw[i] = a.Bytes[offset+i].Concrete()
	}
	return value.FromBytes(decodeUint128(raw, m.arch)), nil
}

// WritePrimVal writes a size-byte scalar at ptr. Writing a Pointer
// records a relocation spanning the pointer width; writing Bytes or
// Abstract data clears any relocation the write range overlaps.
func (m *Memory) WritePrimVal(ptr value.Pointer, val value.PrimVal, size uint64) error {
	a, err := m.lookup(ptr.Alloc)
	if err != nil {
		return err
	}
	if !a.Mutable {
		return evalerror.New(evalerror.ModifiedConstantMemory, "")
	}
	offset, err := m.concreteOffset(a, ptr, size)
	if err != nil {
		return err
	}

	switch val.Kind {
	case value.KindPointerVal:
		if size != uint64(m.arch.PointerSize) {
			return evalerror.New(evalerror.InvalidMemoryAccess, "pointer write size does not match pointer width")
		}
		a.clearRelocationsOverlapping(offset, size, uint64(m.arch.PointerSize))
		a.Relocations[offset] = val.Ptr.Alloc
		raw := encodeUint128(concretePointerOffset(val.Ptr), size, m.arch)
		for i := uint64(0); i < size; i++ {
			a.Bytes[offset+i] = value.ConcreteByte(raw[i])
		}
		a.markDefined(offset, size)
		return nil
	case value.KindUndefinedVal:
		a.clearRelocationsOverlapping(offset, size, uint64(m.arch.PointerSize))
		for i := uint64(0); i < size; i++ {
			a.Undef[offset+i] = false
		}
		return nil
	case value.KindAbstractVal:
		a.clearRelocationsOverlapping(offset, size, uint64(m.arch.PointerSize))
		for i := uint64(0); i < size && i < 8; i++ {
			a.Bytes[offset+i] = val.Abstract[i]
		}
		a.markDefined(offset, size)
		return nil
	default:
		a.clearRelocationsOverlapping(offset, size, uint64(m.arch.PointerSize))
		raw := encodeUint128(val.Bytes, size, m.arch)
		for i := uint64(0); i < size; i++ {
			a.Bytes[offset+i] = value.ConcreteByte(raw[i])
		}
		a.markDefined(offset, size)
		return nil
	}
}

func concretePointerOffset(p value.Pointer) value.Uint128 {
	if p.Offset.IsConcrete() {
		return value.NewUint128(p.Offset.Concrete())
	}
	return value.Uint128{}
}

func hasAbstractByte(bytes []value.SByte) bool {
	for _, b := range bytes {
		if !b.IsConcrete() {
			return true
		}
	}
	return false
}

// widenToWord maps a sub-word symbolic byte range to the 8-byte
// abstract representation every symbolic PrimVal carries (spec §4.2's
// width normalisation): concrete bytes in the range keep their value
// as a constant byte, only truly unknown bytes carry a fresh-looking
// id (in practice, the original SByte's own id).
func widenToWord(bytes []value.SByte) [8]value.SByte {
	var word [8]value.SByte
	for i := range word {
		if i < len(bytes) {
			word[i] = bytes[i]
		} else {
			word[i] = value.ConcreteByte(0)
		}
	}
	return word
}

// ReadInt reads a size-byte two's-complement signed integer.
func (m *Memory) ReadInt(ptr value.Pointer, size uint64) (int64, error) {
	v, err := m.ReadPrimVal(ptr, size)
	if err != nil {
		return 0, err
	}
	bits, ok := v.ToBytes()
	if !ok {
		return 0, evalerror.New(evalerror.Math, "value is not a concrete integer")
	}
	return signExtend(bits.Uint64(), size), nil
}

// ReadUint reads a size-byte unsigned integer.
func (m *Memory) ReadUint(ptr value.Pointer, size uint64) (uint64, error) {
	v, err := m.ReadPrimVal(ptr, size)
	if err != nil {
		return 0, err
	}
	bits, ok := v.ToBytes()
	if !ok {
		return 0, evalerror.New(evalerror.Math, "value is not a concrete integer")
	}
	return bits.Uint64(), nil
}

// ReadBool reads a single byte as a boolean, failing InvalidBool if it
// is neither 0 nor 1.
func (m *Memory) ReadBool(ptr value.Pointer) (bool, error) {
	v, err := m.ReadUint(ptr, 1)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, evalerror.New(evalerror.InvalidBool, "")
	}
}

// ReadF32 reads a 4-byte IEEE-754 single-precision float.
func (m *Memory) ReadF32(ptr value.Pointer) (float32, error) {
	v, err := m.ReadUint(ptr, 4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v)), nil
}

// ReadF64 reads an 8-byte IEEE-754 double-precision float.
func (m *Memory) ReadF64(ptr value.Pointer) (float64, error) {
	v, err := m.ReadUint(ptr, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadUsize reads a pointer-width unsigned integer.
func (m *Memory) ReadUsize(ptr value.Pointer) (uint64, error) {
	return m.ReadUint(ptr, uint64(m.arch.PointerSize))
}

// ReadPtr reads a pointer-width value and requires it decode as a
// Pointer PrimVal.
func (m *Memory) ReadPtr(ptr value.Pointer) (value.Pointer, error) {
	v, err := m.ReadPrimVal(ptr, uint64(m.arch.PointerSize))
	if err != nil {
		return value.Pointer{}, err
	}
	p, ok := v.ToPointer()
	if !ok {
		return value.Pointer{}, evalerror.New(evalerror.InvalidMemoryAccess, "expected a pointer value")
	}
	return p, nil
}

func signExtend(v uint64, size uint64) int64 {
	bits := size * 8
	if bits >= 64 {
		return int64(v)
	}
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

// Copy bytewise-copies size bytes from src to dst, preserving
// definedness and relocations. Overlapping ranges within the same
// allocation are copied through a temporary so the result is defined
// regardless of copy direction (spec §4.3).
func (m *Memory) Copy(src, dst value.Pointer, size, align uint64) error {
	if err := m.CheckAlign(src, align, size); err != nil {
		return err
	}
	if err := m.CheckAlign(dst, align, size); err != nil {
		return err
	}
	srcAlloc, err := m.lookup(src.Alloc)
	if err != nil {
		return err
	}
	dstAlloc, err := m.lookup(dst.Alloc)
	if err != nil {
		return err
	}
	if !dstAlloc.Mutable {
		return evalerror.New(evalerror.ModifiedConstantMemory, "")
	}
	srcOff, err := m.concreteOffset(srcAlloc, src, size)
	if err != nil {
		return err
	}
	dstOff, err := m.concreteOffset(dstAlloc, dst, size)
	if err != nil {
		return err
	}

	tmpBytes := make([]value.SByte, size)
	copy(tmpBytes, srcAlloc.Bytes[srcOff:srcOff+size])
	tmpUndef := make([]bool, size)
	copy(tmpUndef, srcAlloc.Undef[srcOff:srcOff+size])
	tmpRelocs := make(map[uint64]value.AllocID)
	for off, id := range srcAlloc.Relocations {
		if off >= srcOff && off < srcOff+size {
			tmpRelocs[off-srcOff] = id
		}
	}

	dstAlloc.clearRelocationsOverlapping(dstOff, size, uint64(m.arch.PointerSize))
	copy(dstAlloc.Bytes[dstOff:dstOff+size], tmpBytes)
	copy(dstAlloc.Undef[dstOff:dstOff+size], tmpUndef)
	for off, id := range tmpRelocs {
		dstAlloc.Relocations[dstOff+off] = id
	}
	return nil
}

// WriteRepeat fills n bytes starting at ptr with byte b, clearing any
// relocation the range overlaps and marking the range defined.
func (m *Memory) WriteRepeat(ptr value.Pointer, b uint8, n uint64) error {
	a, err := m.lookup(ptr.Alloc)
	if err != nil {
		return err
	}
	if !a.Mutable {
		return evalerror.New(evalerror.ModifiedConstantMemory, "")
	}
	offset, err := m.concreteOffset(a, ptr, n)
	if err != nil {
		return err
	}
	a.clearRelocationsOverlapping(offset, n, uint64(m.arch.PointerSize))
	for i := uint64(0); i < n; i++ {
		a.Bytes[offset+i] = value.ConcreteByte(b)
	}
	a.markDefined(offset, n)
	return nil
}
