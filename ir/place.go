package ir

// PlaceKind tags how a Place addresses a location, mirroring the
// closed set mir::Lvalue distinguishes (spec §4.4 calls the resolved,
// runtime version of this Lvalue; this is the static IR node that
// resolves to one).
type PlaceKind uint8

const (
	PlaceLocal PlaceKind = iota
	PlaceField
	PlaceDeref
	PlaceIndex
	PlaceDowncast
)

// Place is a statically-typed reference to an addressable location,
// as produced by the front end — not yet resolved against a frame or
// an allocation.
type Place struct {
	Kind PlaceKind

	// PlaceLocal
	Local Local

	// PlaceField, PlaceDeref, PlaceIndex, PlaceDowncast all wrap a base.
	Base *Place

	// PlaceField
	FieldIndex int
	FieldTy    Ty

	// PlaceIndex
	Index *Operand

	// PlaceDeref, PlaceIndex: the resulting pointee/element type. The
	// front end already knows this statically; carrying it here avoids
	// the evaluator needing a separate "deref type"/"element type"
	// query on TypeSystem.
	Ty Ty

	// PlaceDowncast
	VariantIndex int
}

// LocalPlace builds a Place referring directly to a local.
func LocalPlace(l Local) Place { return Place{Kind: PlaceLocal, Local: l} }

// Field builds a Place for a field projection off base.
func Field(base Place, index int, ty Ty) Place {
	return Place{Kind: PlaceField, Base: &base, FieldIndex: index, FieldTy: ty}
}

// Deref builds a Place dereferencing base; ty is the pointee type.
func Deref(base Place, ty Ty) Place { return Place{Kind: PlaceDeref, Base: &base, Ty: ty} }

// Index builds a Place indexing base by a dynamic operand; ty is the
// element type.
func Index(base Place, idx Operand, ty Ty) Place {
	return Place{Kind: PlaceIndex, Base: &base, Index: &idx, Ty: ty}
}

// Downcast builds a Place narrowing base to one enum variant.
func Downcast(base Place, variant int) Place {
	return Place{Kind: PlaceDowncast, Base: &base, VariantIndex: variant}
}
