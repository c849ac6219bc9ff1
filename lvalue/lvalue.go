// Package lvalue implements the resolved, runtime addressable
// location spec §4.4 names Lvalue — the evaluated counterpart of an
// ir.Place, once a frame's locals and a memory manager's allocations
// are available to resolve against.
//
// Grounded on original_source/src/lvalue.rs's Lvalue/LvalueExtra sum
// type, and on ogle/program/server/eval.go's evalNode for the shape of
// "resolve a static expression node against live state" (there: DWARF
// variables in a traced process; here: frame locals and allocations).
package lvalue

import (
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/value"
)

// Kind tags which of the three Lvalue shapes a value holds.
type Kind uint8

const (
	// KindLocal addresses a slot in a stack frame, optionally a field
	// within a ByPair local.
	KindLocal Kind = iota
	// KindPtr addresses a byte range through a Pointer, with optional
	// extra metadata for unsized values.
	KindPtr
	// KindGlobal addresses a global slot by constant id.
	KindGlobal
)

// ExtraKind tags the metadata a KindPtr lvalue may carry for unsized
// or unsize-coerced values.
type ExtraKind uint8

const (
	ExtraNone ExtraKind = iota
	ExtraLength
	ExtraVtable
	ExtraDowncastVariant
)

// Extra is the optional payload alongside a KindPtr lvalue's pointer.
type Extra struct {
	Kind    ExtraKind
	Length  uint64
	Vtable  value.Pointer
	Variant int
}

// GlobalID names a global slot, keyed by (item, promoted-index).
type GlobalID struct {
	Item      ir.DefID
	Promoted  int
	HasPromo  bool
}

// Lvalue is the resolved, runtime location spec §4.4 defines.
type Lvalue struct {
	Kind Kind

	// KindLocal
	FrameIndex int
	Local      ir.Local
	HasField   bool
	FieldIndex int
	FieldTy    ir.Ty

	// KindPtr
	Ptr   value.Pointer
	Extra Extra

	// KindGlobal
	Global GlobalID
}

// LocalLvalue builds an Lvalue addressing a whole local in the frame
// at frameIndex. frameIndex, not a *frame.Frame, so this package does
// not import frame (frame already imports lvalue to resolve places).
func LocalLvalue(frameIndex int, local ir.Local) Lvalue {
	return Lvalue{Kind: KindLocal, FrameIndex: frameIndex, Local: local}
}

// LocalField builds an Lvalue addressing one field of a ByPair local.
func LocalField(frameIndex int, local ir.Local, fieldIndex int, fieldTy ir.Ty) Lvalue {
	return Lvalue{
		Kind: KindLocal, FrameIndex: frameIndex, Local: local,
		HasField: true, FieldIndex: fieldIndex, FieldTy: fieldTy,
	}
}

// FromPtr builds a bare KindPtr Lvalue with no extra metadata.
func FromPtr(ptr value.Pointer) Lvalue {
	return Lvalue{Kind: KindPtr, Ptr: ptr}
}

// FromPtrWithLength builds a KindPtr Lvalue carrying an unsized
// slice's element count.
func FromPtrWithLength(ptr value.Pointer, length uint64) Lvalue {
	return Lvalue{Kind: KindPtr, Ptr: ptr, Extra: Extra{Kind: ExtraLength, Length: length}}
}

// FromPtrWithVtable builds a KindPtr Lvalue carrying a trait object's
// vtable pointer.
func FromPtrWithVtable(ptr, vtable value.Pointer) Lvalue {
	return Lvalue{Kind: KindPtr, Ptr: ptr, Extra: Extra{Kind: ExtraVtable, Vtable: vtable}}
}

// FromPtrDowncast builds a KindPtr Lvalue narrowed to one enum variant.
func FromPtrDowncast(ptr value.Pointer, variant int) Lvalue {
	return Lvalue{Kind: KindPtr, Ptr: ptr, Extra: Extra{Kind: ExtraDowncastVariant, Variant: variant}}
}

// FromGlobal builds an Lvalue addressing a global slot.
func FromGlobal(id GlobalID) Lvalue {
	return Lvalue{Kind: KindGlobal, Global: id}
}

// ToPtr returns the Lvalue's address; it fails for a KindLocal lvalue
// that has not been forced into an allocation (the caller is expected
// to call ForceAllocation first) and for a KindGlobal lvalue (the
// frame layer resolves those through its global table instead).
func (l Lvalue) ToPtr() (value.Pointer, error) {
	if l.Kind != KindPtr {
		return value.Pointer{}, evalerror.New(evalerror.InvalidMemoryAccess, "lvalue does not address a pointer")
	}
	return l.Ptr, nil
}

// Field returns a new Lvalue addressing one field of l, given the
// field's byte offset and type. A KindLocal lvalue with no existing
// field gets one; a KindPtr lvalue gets a pointer offset by
// fieldOffset (aggregates addressed through a pointer have their
// fields addressed the same way).
func (l Lvalue) Field(fieldIndex int, fieldOffset int64, fieldTy ir.Ty) Lvalue {
	switch l.Kind {
	case KindLocal:
		return LocalField(l.FrameIndex, l.Local, fieldIndex, fieldTy)
	case KindPtr:
		return FromPtr(l.Ptr.Add(fieldOffset))
	default:
		return l
	}
}
