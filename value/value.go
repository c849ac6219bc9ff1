// Package value implements the tagged primitive scalar model described
// in spec §3/§4.1: a four-way Bytes/Pointer/Undefined/Abstract value,
// the pointer representation it carries, and the register-level Value
// (ByValue/ByPair/ByRef) a guest local is stored as.
//
// Grounded on ogle/program/server/value.go's type-switch decoding of
// memory into typed Go values (here: PrimValKind instead of a DWARF
// type), generalized to also carry symbolic (Abstract) data.
package value

import "fmt"

// AllocID names an allocation. IDs are dense and monotonically
// increasing; a handful of small values are reserved for pointers that
// do not address a real allocation.
type AllocID uint64

const (
	// NullAllocID is the allocation id carried by a null pointer.
	NullAllocID AllocID = 0
	// DanglingAllocID is reserved for dangling pointers; dereferencing
	// it fails DanglingPointerDeref. A pointer into a freed allocation
	// keeps that allocation's own id.
	DanglingAllocID AllocID = 1
	// FunctionAllocID is carried by function pointers; the offset
	// identifies the function rather than a byte within an allocation.
	FunctionAllocID AllocID = 2
	// FirstRealAllocID is the first id handed out by the memory
	// manager's allocation counter.
	FirstRealAllocID AllocID = 3
)

// SByte is a single symbolic byte: either a known 8-bit value or a
// fresh, process-wide-unique abstract identifier.
type SByte struct {
	abstract bool
	concrete uint8
	id       uint64
}

// ConcreteByte builds a known byte.
func ConcreteByte(b uint8) SByte { return SByte{concrete: b} }

// AbstractByte builds a symbolic byte with the given fresh id.
func AbstractByte(id uint64) SByte { return SByte{abstract: true, id: id} }

// IsConcrete reports whether the byte has a known value.
func (b SByte) IsConcrete() bool { return !b.abstract }

// Concrete returns the byte's known value; valid only if IsConcrete.
func (b SByte) Concrete() uint8 { return b.concrete }

// ID returns the byte's symbolic identifier; valid only if !IsConcrete.
func (b SByte) ID() uint64 { return b.id }

func (b SByte) String() string {
	if b.abstract {
		return fmt.Sprintf("sym#%d", b.id)
	}
	return fmt.Sprintf("%#02x", b.concrete)
}

// Offset is a pointer's byte offset within its allocation: either a
// concrete u64 or a symbolic 8-byte sequence (spec §3, Pointer).
type Offset struct {
	symbolic bool
	concrete uint64
	sym      [8]SByte
}

// ConcreteOffset builds a concrete offset.
func ConcreteOffset(n uint64) Offset { return Offset{concrete: n} }

// AbstractOffset builds a symbolic offset from 8 symbolic bytes.
func AbstractOffset(bytes [8]SByte) Offset { return Offset{symbolic: true, sym: bytes} }

// IsConcrete reports whether the offset has a known value.
func (o Offset) IsConcrete() bool { return !o.symbolic }

// Concrete returns the offset's known value; valid only if IsConcrete.
func (o Offset) Concrete() uint64 { return o.concrete }

// Symbolic returns the offset's symbolic bytes; valid only if !IsConcrete.
func (o Offset) Symbolic() [8]SByte { return o.sym }

func (o Offset) String() string {
	if o.symbolic {
		return "<symbolic>"
	}
	return fmt.Sprintf("%#x", o.concrete)
}

// Add returns a new concrete offset shifted by delta; it must only be
// called on a concrete offset (callers route symbolic offsets through
// the constraint store instead).
func (o Offset) Add(delta int64) Offset {
	return ConcreteOffset(uint64(int64(o.concrete) + delta))
}

// Pointer is an (allocation, offset) pair. Null, dangling, and function
// pointers are distinguished by carrying a reserved AllocID.
type Pointer struct {
	Alloc  AllocID
	Offset Offset
}

// NewPointer builds a concrete pointer into alloc at the given offset.
func NewPointer(alloc AllocID, offset uint64) Pointer {
	return Pointer{Alloc: alloc, Offset: ConcreteOffset(offset)}
}

// NullPointer is the pointer value representing the null constant.
var NullPointer = Pointer{Alloc: NullAllocID, Offset: ConcreteOffset(0)}

// IsConcrete reports whether the pointer's offset is concrete.
func (p Pointer) IsConcrete() bool { return p.Offset.IsConcrete() }

// String implements fmt.Stringer so a Pointer can be embedded directly
// in evalerror.Error without an import cycle.
func (p Pointer) String() string {
	return fmt.Sprintf("alloc%d+%s", p.Alloc, p.Offset)
}

// Add returns a new pointer shifted by delta bytes; delta must be
// applied to a concrete pointer.
func (p Pointer) Add(delta int64) Pointer {
	return Pointer{Alloc: p.Alloc, Offset: p.Offset.Add(delta)}
}

// Uint128 is a 128-bit unsigned integer, wide enough to hold the
// largest concrete scalar the value model tracks (spec §3: Bytes(u128)).
type Uint128 struct {
	Lo, Hi uint64
}

// NewUint128 builds a zero-extended Uint128 from a 64-bit value.
func NewUint128(v uint64) Uint128 { return Uint128{Lo: v} }

// Uint64 truncates to the low 64 bits.
func (u Uint128) Uint64() uint64 { return u.Lo }

// IsZero reports whether the value is zero.
func (u Uint128) IsZero() bool { return u.Lo == 0 && u.Hi == 0 }

func (u Uint128) String() string {
	if u.Hi == 0 {
		return fmt.Sprintf("%d", u.Lo)
	}
	return fmt.Sprintf("0x%016x%016x", u.Hi, u.Lo)
}

// Kind tags a PrimVal's representation.
type Kind uint8

const (
	// KindBytesVal is a concrete scalar.
	KindBytesVal Kind = iota
	// KindPointerVal is a pointer into an allocation.
	KindPointerVal
	// KindUndefinedVal is the result of reading uninitialized memory.
	KindUndefinedVal
	// KindAbstractVal is 8 symbolic bytes.
	KindAbstractVal
)

// PrimVal is the four-way tagged scalar from spec §3/§4.1.
type PrimVal struct {
	Kind     Kind
	Bytes    Uint128
	Ptr      Pointer
	Abstract [8]SByte
}

// Undef is the Undefined primitive value.
func Undef() PrimVal { return PrimVal{Kind: KindUndefinedVal} }

// FromBytes builds a concrete Bytes value.
func FromBytes(v Uint128) PrimVal { return PrimVal{Kind: KindBytesVal, Bytes: v} }

// FromUint64 builds a concrete Bytes value from a 64-bit unsigned integer.
func FromUint64(v uint64) PrimVal { return FromBytes(NewUint128(v)) }

// FromBool builds a concrete boolean Bytes value (0 or 1).
func FromBool(b bool) PrimVal {
	if b {
		return FromUint64(1)
	}
	return FromUint64(0)
}

// FromPointer builds a Pointer PrimVal.
func FromPointer(p Pointer) PrimVal { return PrimVal{Kind: KindPointerVal, Ptr: p} }

// FromAbstract builds an Abstract PrimVal from 8 symbolic bytes.
func FromAbstract(bytes [8]SByte) PrimVal {
	return PrimVal{Kind: KindAbstractVal, Abstract: bytes}
}

// IsConcrete reports whether v carries a definite bit pattern: Bytes
// values are always concrete; a Pointer is concrete iff its offset is;
// Undefined and Abstract are never concrete (spec §4.1).
func (v PrimVal) IsConcrete() bool {
	switch v.Kind {
	case KindBytesVal:
		return true
	case KindPointerVal:
		return v.Ptr.IsConcrete()
	default:
		return false
	}
}

// ToBytes returns the concrete bit pattern of a Bytes value and true.
// For every other kind (Undefined, Abstract, or a Pointer, concrete or
// not) it returns false and no error; callers choose which error kind
// to report.
func (v PrimVal) ToBytes() (Uint128, bool) {
	if v.Kind == KindBytesVal {
		return v.Bytes, true
	}
	return Uint128{}, false
}

// ToPointer returns v as a Pointer; only valid for Kind == KindPointerVal.
func (v PrimVal) ToPointer() (Pointer, bool) {
	if v.Kind == KindPointerVal {
		return v.Ptr, true
	}
	return Pointer{}, false
}

func (v PrimVal) String() string {
	switch v.Kind {
	case KindBytesVal:
		return v.Bytes.String()
	case KindPointerVal:
		return v.Ptr.String()
	case KindUndefinedVal:
		return "<undef>"
	case KindAbstractVal:
		return "<abstract>"
	default:
		return "<invalid primval>"
	}
}
