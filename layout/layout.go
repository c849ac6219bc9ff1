// Package layout is the adapter over an external type system spec §4.5
// names: size, alignment, field layout, discriminants, generic
// resolution and trait selection, all queried through one interface
// the evaluator holds an implementation of but never constructs
// itself (the type system — a full trait-resolving, monomorphizing
// compiler front end — is an explicitly named external collaborator,
// spec §1/§6).
//
// Grounded on internal/gocore/type.go's Kind/Type vocabulary
// (generalized from "the Go runtime's own type shapes" to the fuller
// enum original_source/src/interpreter/..  (really rustc's trans::adt
// Layout, consumed read-only through eval_context.rs) needs) and on
// ogle/program/server/eval.go's pattern of holding a small interface
// over a much larger external system (there: dwarf.Data) instead of
// reimplementing it.
package layout

import (
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/value"
)

// TraitRef names a trait implementation to select: the trait being
// implemented plus the concrete type it is implemented for.
type TraitRef struct {
	Trait ir.DefID
	Self  ir.Ty
}

// TypeSystem answers every question the evaluator has about a Ty,
// without ever inspecting one itself. A production implementation
// wraps a real monomorphizing, trait-resolving compiler front end;
// cmd/seer's tests wrap a small hand-built fixture instead.
type TypeSystem interface {
	// Size returns ty's byte size; ok is false for an unsized type
	// (a trait object or slice without its length/vtable attached).
	Size(ty ir.Ty) (size int64, ok bool)
	// Align returns ty's required alignment, a power of two.
	Align(ty ir.Ty) int64
	// Layout returns ty's field/variant layout shape.
	Layout(ty ir.Ty) (Shape, error)
	// Discriminants returns the literal discriminant value of each
	// variant of an enum type, in declaration order.
	Discriminants(ty ir.Ty) []int64
	// PrimitiveKind reports ty's PrimValKind if it is a primitive
	// scalar (ok is false for aggregates).
	PrimitiveKind(ty ir.Ty) (kind value.PrimValKind, ok bool)

	// EraseRegions strips lifetime parameters from ty.
	EraseRegions(ty ir.Ty) ir.Ty
	// Monomorphize substitutes substs into ty's generic parameters.
	Monomorphize(ty ir.Ty, substs ir.Substs) ir.Ty
	// Normalize resolves associated types and erases regions.
	Normalize(ty ir.Ty) ir.Ty

	// Resolve looks up the monomorphized instance for a function/static.
	Resolve(def ir.DefID, substs ir.Substs) (ir.Instance, error)
	// ResolveClosure looks up the instance a closure value of the
	// given kind resolves to when called.
	ResolveClosure(def ir.DefID, substs ir.Substs, kind ir.ClosureKind) (ir.Instance, error)
	// ResolveDrop looks up ty's drop glue instance.
	ResolveDrop(ty ir.Ty) (ir.Instance, error)
	// TraitSelect resolves a trait reference to its vtable's address.
	TraitSelect(ref TraitRef) (value.Pointer, error)
}

// MIRProvider supplies the typed CFG body for a monomorphized
// instance. Returns evalerror.NoMirFor when none is available (an
// extern function, an intrinsic, or a genuinely unknown instance).
type MIRProvider interface {
	MIRFor(instance ir.Instance) (*ir.Body, error)
}

// IsSized reports whether ts assigns ty a definite size.
func IsSized(ts TypeSystem, ty ir.Ty) bool {
	_, ok := ts.Size(ty)
	return ok
}
