package frame

import (
	"math"
	"math/big"

	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/layout"
	"github.com/spacejam/seer/value"
)

// evalCast dispatches a Cast rvalue by its CastKind. ReifyFnPointer,
// UnsafeFnPointer, and ClosureFnPointer all coerce one function-pointer
// representation to another without changing the underlying bits, so
// the operand passes through unchanged; this evaluator never needs to
// distinguish a bare fn pointer from an unsafe fn pointer since neither
// is ever called indirectly except by its resolved Instance (§4.6 Call).
func (ev *Evaluator) evalCast(f *Frame, rv ir.Rvalue, destTy ir.Ty) (value.Value, error) {
	switch rv.Cast {
	case ir.CastUnsize:
		return ev.evalUnsizeCast(f, rv, destTy)
	case ir.CastReifyFnPointer, ir.CastUnsafeFnPointer, ir.CastClosureFnPointer:
		return ev.evalUse(f, rv.Operand)
	default:
		return ev.evalMiscCast(f, rv, destTy)
	}
}

// evalUnsizeCast implements the coercions spec §4.6 names:
// &[T;n] -> &[T] pairs the thin pointer with its static length;
// &T -> &dyn Trait pairs it with the vtable TraitSelect resolves.
// An unsizing whose destination layout is a Univariant wrapper struct
// (Rc<T> -> Rc<dyn Trait> and similar) fails Unimplemented; the
// struct's fields are not searched for the one to coerce.
//
// By convention the front end sets rv.Operand.Ty to the *pointee*'s
// static type for an unsizing coercion (the array type itself for a
// slice coercion, the concrete Self type for a trait-object coercion),
// not the reference type wrapping it — this is the one place the
// evaluator leans on that convention instead of a dedicated
// TypeSystem query, since unsizing is the only operation that needs
// both the source and destination shapes simultaneously.
func (ev *Evaluator) evalUnsizeCast(f *Frame, rv ir.Rvalue, destTy ir.Ty) (value.Value, error) {
	val, err := ev.evalUse(f, rv.Operand)
	if err != nil {
		return value.Value{}, err
	}
	ptr, err := ptrOf(val)
	if err != nil {
		return value.Value{}, err
	}

	shape, err := ev.TS.Layout(destTy)
	if err != nil {
		return value.Value{}, err
	}

	switch shape.Kind {
	case layout.FatPointer:
		switch shape.Metadata {
		case layout.MetadataSliceLength:
			srcShape, err := ev.TS.Layout(rv.Operand.Ty)
			if err != nil {
				return value.Value{}, err
			}
			return value.FromPair(value.FromPointer(ptr), value.FromUint64(srcShape.Count)), nil
		case layout.MetadataVtable:
			vtable, err := ev.TS.TraitSelect(layout.TraitRef{Trait: rv.TraitDef, Self: rv.Operand.Ty})
			if err != nil {
				return value.Value{}, err
			}
			return value.FromPair(value.FromPointer(ptr), value.FromPointer(vtable)), nil
		}
		return value.Value{}, evalerror.New(evalerror.Unimplemented, "fat pointer metadata kind")

	case layout.Univariant:
		// Generic struct unsizing (Rc<T> -> Rc<dyn Trait> and similar,
		// where the wrapper's own address is the coerced field's
		// address) needs the instantiated trait-object type of that
		// field, which this evaluator's TypeSystem has no query for —
		// Box<T> -> Box<dyn Trait> does not hit this branch, since Box
		// is modeled as a bare pointer (NullaryOp(Box) above), not a
		// wrapper struct.
		return value.Value{}, evalerror.New(evalerror.Unimplemented, "unsizing coercion through a generic wrapper struct")

	default:
		return val, nil
	}
}

// evalMiscCast implements numeric conversions between integer, float,
// bool, and char primitives (spec §4.6's CastMisc). A symbolic operand
// produces a fresh 8-byte abstract result, whatever the destination
// width, rather than an exact bit-level symbolic cast expression: the
// SMT backend consuming the constraint store treats it as an opaque
// unknown, which is sound (if coarser than a bitvector-extend
// expression would be) for every query this core issues.
func (ev *Evaluator) evalMiscCast(f *Frame, rv ir.Rvalue, destTy ir.Ty) (value.Value, error) {
	v, srcKind, err := ev.evalOperand(f, rv.Operand)
	if err != nil {
		return value.Value{}, err
	}
	dstKind, ok := ev.TS.PrimitiveKind(destTy)
	if !ok {
		return value.Value{}, evalerror.New(evalerror.TypeNotPrimitive, "cast destination is not a primitive type")
	}

	if !v.IsConcrete() {
		bytes := ev.Mem.Constraints().FreshAbstractBytes(8)
		var arr [8]value.SByte
		copy(arr[:], bytes)
		return value.FromPrimVal(value.FromAbstract(arr)), nil
	}

	bits, ok := v.ToBytes()
	if !ok {
		return value.Value{}, evalerror.New(evalerror.Math, "cast operand is not a concrete scalar")
	}

	switch {
	case srcKind.IsFloat() && dstKind.IsFloat():
		return value.FromPrimVal(value.FromBytes(floatToBits(floatFromBits(bits, srcKind), dstKind))), nil
	case srcKind.IsFloat() && dstKind.IsInt():
		return value.FromPrimVal(value.FromBytes(intFromFloat(floatFromBits(bits, srcKind), dstKind))), nil
	case srcKind.IsInt() && dstKind.IsFloat():
		return value.FromPrimVal(value.FromBytes(floatToBits(intAsFloat(bits, srcKind), dstKind))), nil
	default:
		result := castInt(bits, srcKind.NumBytes()*8, srcKind.IsSignedInt(), dstKind.NumBytes()*8)
		return value.FromPrimVal(value.FromBytes(result)), nil
	}
}

func floatFromBits(bits value.Uint128, kind value.PrimValKind) float64 {
	if kind == value.F32 {
		return float64(math.Float32frombits(uint32(bits.Lo)))
	}
	return math.Float64frombits(bits.Lo)
}

func floatToBits(f float64, kind value.PrimValKind) value.Uint128 {
	if kind == value.F32 {
		return value.Uint128{Lo: uint64(math.Float32bits(float32(f)))}
	}
	return value.Uint128{Lo: math.Float64bits(f)}
}

func intAsFloat(bits value.Uint128, kind value.PrimValKind) float64 {
	if kind.IsSignedInt() {
		return float64(signExtendUint128(bits, kind.NumBytes()*8))
	}
	return float64(bits.Uint64())
}

func intFromFloat(f float64, kind value.PrimValKind) value.Uint128 {
	width := kind.NumBytes() * 8
	if kind.IsSignedInt() {
		return castInt(value.Uint128{Lo: uint64(int64(f))}, 64, true, width)
	}
	return castInt(value.Uint128{Lo: uint64(f)}, 64, false, width)
}

func signExtendUint128(v value.Uint128, bits uint64) int64 {
	if bits >= 64 {
		return int64(v.Lo)
	}
	shift := 64 - bits
	return int64(v.Lo<<shift) >> shift
}

// castInt truncates or sign/zero-extends a raw bit pattern from
// srcBits to dstBits, honoring srcSigned for the extension direction.
func castInt(v value.Uint128, srcBits uint64, srcSigned bool, dstBits uint64) value.Uint128 {
	raw := new(big.Int)
	if srcBits <= 64 {
		mask := uint64(1)<<srcBits - 1
		if srcBits >= 64 {
			mask = ^uint64(0)
		}
		raw.SetUint64(v.Lo & mask)
		if srcSigned && raw.Bit(int(srcBits-1)) == 1 {
			full := new(big.Int).Lsh(big.NewInt(1), uint(srcBits))
			raw.Sub(raw, full)
		}
	} else {
		raw.SetUint64(v.Hi)
		raw.Lsh(raw, 64)
		raw.Or(raw, new(big.Int).SetUint64(v.Lo))
		if srcSigned && v.Hi>>63 == 1 {
			full := new(big.Int).Lsh(big.NewInt(1), 128)
			raw.Sub(raw, full)
		}
	}

	mod := new(big.Int).Lsh(big.NewInt(1), uint(dstBits))
	wrapped := new(big.Int).Mod(raw, mod)

	lo := new(big.Int).And(wrapped, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(wrapped, 64).Uint64()
	return value.Uint128{Lo: lo, Hi: hi}
}
