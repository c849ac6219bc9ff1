package layout

import "github.com/spacejam/seer/ir"

// ShapeKind enumerates the layout shapes a type can take, per spec
// §6's external-interface enumeration (mirroring rustc's internal
// Layout enum, which original_source's type_layout adapter returns
// verbatim).
type ShapeKind uint8

const (
	Univariant ShapeKind = iota
	Array
	General
	RawNullablePointer
	StructWrappedNullablePointer
	CEnum
	Vector
	UntaggedUnion
	FatPointer
)

// MetadataKind tags what a fat pointer's second word carries.
type MetadataKind uint8

const (
	MetadataNone MetadataKind = iota
	MetadataSliceLength
	MetadataVtable
)

// VariantLayout describes one enum variant's field placement within a
// General-shaped type.
type VariantLayout struct {
	Discriminant int64
	FieldOffsets []int64
	FieldTypes   []ir.Ty
	Size         int64
}

// Shape is the layout-adapter's answer to "how are this type's bytes
// arranged" — spec §6's Univariant/Array/General/RawNullablePointer/
// StructWrappedNullablePointer/CEnum/Vector/UntaggedUnion/FatPointer.
// Only the fields relevant to Kind are populated.
type Shape struct {
	Kind ShapeKind

	// Univariant, StructWrappedNullablePointer (the non-null variant's
	// own field layout)
	FieldOffsets []int64
	FieldTypes   []ir.Ty
	Align        int64
	Packed       bool

	// Array, Vector
	Count uint64
	Elem  ir.Ty

	// General
	DiscrOffset int64
	DiscrTy     ir.Ty
	Variants    []VariantLayout

	// RawNullablePointer
	NonNullDiscr   int64
	NullableTy     ir.Ty

	// StructWrappedNullablePointer
	NonNullFieldIndex int
	DiscrFieldPath    []int

	// CEnum
	Signed bool

	// FatPointer
	Metadata MetadataKind
}

// FieldOffset returns the byte offset and type of field index within a
// Univariant-shaped (or the non-null variant of a
// StructWrappedNullablePointer-shaped) type.
func (s Shape) FieldOffset(index int) (int64, ir.Ty, bool) {
	if index < 0 || index >= len(s.FieldOffsets) {
		return 0, ir.Ty{}, false
	}
	return s.FieldOffsets[index], s.FieldTypes[index], true
}

// FieldCount returns the number of fields a Univariant-shaped type has.
func (s Shape) FieldCount() int { return len(s.FieldOffsets) }

// VariantFieldOffset returns the byte offset and type of a field
// within one variant of a General-shaped enum.
func (s Shape) VariantFieldOffset(variant, index int) (int64, ir.Ty, bool) {
	if variant < 0 || variant >= len(s.Variants) {
		return 0, ir.Ty{}, false
	}
	v := s.Variants[variant]
	if index < 0 || index >= len(v.FieldOffsets) {
		return 0, ir.Ty{}, false
	}
	return v.FieldOffsets[index], v.FieldTypes[index], true
}

// IsFatPointer reports whether the shape is a two-word fat pointer.
func (s Shape) IsFatPointer() bool { return s.Kind == FatPointer }
