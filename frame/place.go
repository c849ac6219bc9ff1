package frame

import (
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/lvalue"
	"github.com/spacejam/seer/value"
)

// resolved is a Place resolved against live frame/memory state: the
// runtime Lvalue it addresses, its static type, and — if the place was
// narrowed by a Downcast — which enum variant subsequent Field
// projections should be read against.
type resolved struct {
	lv         lvalue.Lvalue
	ty         ir.Ty
	variant    int
	hasVariant bool
}

// resolvePlace walks a Place's projection chain (Local, then any
// Field/Deref/Index/Downcast wrapping it), forcing a base local into a
// real allocation only when a field or index projection actually needs
// an address to offset from — mirroring lvalue.rs's eval_lvalue.
func (ev *Evaluator) resolvePlace(f *Frame, p ir.Place) (resolved, error) {
	switch p.Kind {
	case ir.PlaceLocal:
		ty := f.Body.LocalDecls[p.Local].Ty
		return resolved{lv: lvalue.LocalLvalue(f.index, p.Local), ty: ty}, nil

	case ir.PlaceField:
		base, err := ev.resolvePlace(f, *p.Base)
		if err != nil {
			return resolved{}, err
		}
		if base.lv.Kind == lvalue.KindLocal {
			local := f.Locals[base.lv.Local]
			if local.Kind == value.ByPair && p.FieldIndex < 2 {
				return resolved{lv: lvalue.LocalField(f.index, base.lv.Local, p.FieldIndex, p.FieldTy), ty: p.FieldTy}, nil
			}
			forcedLv, err := ev.forceLocal(f, base.lv, base.ty)
			if err != nil {
				return resolved{}, err
			}
			base.lv = forcedLv
		}
		ptr, err := base.lv.ToPtr()
		if err != nil {
			return resolved{}, err
		}
		shape, err := ev.TS.Layout(base.ty)
		if err != nil {
			return resolved{}, err
		}
		var off int64
		var fty ir.Ty
		var ok bool
		if base.hasVariant {
			off, fty, ok = shape.VariantFieldOffset(base.variant, p.FieldIndex)
		} else {
			off, fty, ok = shape.FieldOffset(p.FieldIndex)
		}
		if !ok {
			return resolved{}, evalerror.New(evalerror.Layout, "field index out of range for this shape")
		}
		return resolved{lv: lvalue.FromPtr(ptr.Add(off)), ty: fty}, nil

	case ir.PlaceDeref:
		base, err := ev.resolvePlace(f, *p.Base)
		if err != nil {
			return resolved{}, err
		}
		val, err := ev.readLvalue(f, base.lv, base.ty)
		if err != nil {
			return resolved{}, err
		}
		ptr, err := ptrOf(val)
		if err != nil {
			return resolved{}, err
		}
		return resolved{lv: lvalue.FromPtr(ptr), ty: p.Ty}, nil

	case ir.PlaceIndex:
		base, err := ev.resolvePlace(f, *p.Base)
		if err != nil {
			return resolved{}, err
		}
		if base.lv.Kind == lvalue.KindLocal {
			forcedLv, err := ev.forceLocal(f, base.lv, base.ty)
			if err != nil {
				return resolved{}, err
			}
			base.lv = forcedLv
		}
		ptr, err := base.lv.ToPtr()
		if err != nil {
			return resolved{}, err
		}
		idxVal, _, err := ev.evalOperand(f, *p.Index)
		if err != nil {
			return resolved{}, err
		}
		idxBits, ok := idxVal.ToBytes()
		if !ok {
			return resolved{}, evalerror.New(evalerror.InvalidMemoryAccess, "cannot index memory with a symbolic index")
		}
		elemSize, ok := ev.TS.Size(p.Ty)
		if !ok {
			return resolved{}, evalerror.New(evalerror.Layout, "indexed element type has no definite size")
		}
		return resolved{lv: lvalue.FromPtr(ptr.Add(int64(idxBits.Uint64()) * elemSize)), ty: p.Ty}, nil

	case ir.PlaceDowncast:
		base, err := ev.resolvePlace(f, *p.Base)
		if err != nil {
			return resolved{}, err
		}
		if base.lv.Kind == lvalue.KindLocal {
			forcedLv, err := ev.forceLocal(f, base.lv, base.ty)
			if err != nil {
				return resolved{}, err
			}
			base.lv = forcedLv
		}
		return resolved{lv: base.lv, ty: base.ty, variant: p.VariantIndex, hasVariant: true}, nil
	}
	return resolved{}, evalerror.New(evalerror.Unimplemented, "unknown place kind")
}

// forceLocal promotes a KindLocal lvalue's underlying register value
// to a real allocation (lvalue.ForceAllocation), rewriting the frame's
// local slot in place so subsequent reads see the same address.
func (ev *Evaluator) forceLocal(f *Frame, lv lvalue.Lvalue, ty ir.Ty) (lvalue.Lvalue, error) {
	cur := f.Locals[lv.Local]
	forcedLv, newVal, err := lvalue.ForceAllocation(ev.Mem, ev.TS, cur, ty)
	if err != nil {
		return lvalue.Lvalue{}, err
	}
	f.Locals[lv.Local] = newVal
	return forcedLv, nil
}

func ptrOf(v value.Value) (value.Pointer, error) {
	switch v.Kind {
	case value.ByRef:
		return v.Ref, nil
	case value.ByValue:
		if p, ok := v.Val.ToPointer(); ok {
			return p, nil
		}
	}
	return value.Pointer{}, evalerror.New(evalerror.InvalidMemoryAccess, "expected a pointer-valued operand")
}

// readLvalue loads the current value addressed by lv. A primitive type
// is read through memory into a scalar Value; an aggregate type stays
// represented by reference (the caller's job is to Copy the bytes, not
// materialize them).
func (ev *Evaluator) readLvalue(f *Frame, lv lvalue.Lvalue, ty ir.Ty) (value.Value, error) {
	switch lv.Kind {
	case lvalue.KindLocal:
		owner := ev.Stack[lv.FrameIndex]
		if lv.HasField {
			return value.FromPrimVal(owner.Locals[lv.Local].Pair[lv.FieldIndex]), nil
		}
		return owner.Locals[lv.Local], nil
	case lvalue.KindPtr:
		if kind, ok := ev.TS.PrimitiveKind(ty); ok {
			pv, err := ev.Mem.ReadPrimVal(lv.Ptr, kind.NumBytes())
			if err != nil {
				return value.Value{}, err
			}
			return value.FromPrimVal(pv), nil
		}
		return value.FromRef(lv.Ptr), nil
	case lvalue.KindGlobal:
		ptr, ok := ev.Globals[lv.Global]
		if !ok {
			return value.Value{}, evalerror.New(evalerror.InvalidMemoryAccess, "reference to an unresolved global")
		}
		return ev.readLvalue(f, lvalue.FromPtr(ptr), ty)
	}
	return value.Value{}, evalerror.New(evalerror.Unimplemented, "unknown lvalue kind")
}

// writeLvalue stores val at the location lv addresses. An aggregate
// write expects val to be ByRef (as readLvalue/evalAggregate produce)
// and is performed as a byte copy.
func (ev *Evaluator) writeLvalue(f *Frame, lv lvalue.Lvalue, val value.Value, ty ir.Ty) error {
	switch lv.Kind {
	case lvalue.KindLocal:
		owner := ev.Stack[lv.FrameIndex]
		if lv.HasField {
			pv, err := toPrimVal(val)
			if err != nil {
				return err
			}
			owner.Locals[lv.Local].Pair[lv.FieldIndex] = pv
			return nil
		}
		owner.Locals[lv.Local] = val
		return nil
	case lvalue.KindPtr:
		if kind, ok := ev.TS.PrimitiveKind(ty); ok {
			pv, err := toPrimVal(val)
			if err != nil {
				return err
			}
			return ev.Mem.WritePrimVal(lv.Ptr, pv, kind.NumBytes())
		}
		size, ok := ev.TS.Size(ty)
		if !ok || size == 0 {
			return nil
		}
		align := ev.TS.Align(ty)
		src, err := ptrOf(val)
		if err != nil {
			return err
		}
		return ev.Mem.Copy(src, lv.Ptr, uint64(size), uint64(align))
	case lvalue.KindGlobal:
		ptr, ok := ev.Globals[lv.Global]
		if !ok {
			return evalerror.New(evalerror.InvalidMemoryAccess, "assignment to an unresolved global")
		}
		return ev.writeLvalue(f, lvalue.FromPtr(ptr), val, ty)
	}
	return evalerror.New(evalerror.Unimplemented, "unknown lvalue kind")
}

func toPrimVal(v value.Value) (value.PrimVal, error) {
	switch v.Kind {
	case value.ByValue:
		return v.Val, nil
	case value.ByRef:
		return value.FromPointer(v.Ref), nil
	}
	return value.PrimVal{}, evalerror.New(evalerror.Math, "expected a scalar value")
}

// evalOperand reduces an Operand to a PrimVal and the PrimValKind it
// should be interpreted at.
func (ev *Evaluator) evalOperand(f *Frame, op ir.Operand) (value.PrimVal, value.PrimValKind, error) {
	if op.Kind == ir.OperandConstant {
		kind, _ := ev.TS.PrimitiveKind(op.Ty)
		return op.Const, kind, nil
	}
	r, err := ev.resolvePlace(f, op.Place)
	if err != nil {
		return value.PrimVal{}, 0, err
	}
	val, err := ev.readLvalue(f, r.lv, r.ty)
	if err != nil {
		return value.PrimVal{}, 0, err
	}
	kind, ok := ev.TS.PrimitiveKind(r.ty)
	if !ok {
		return value.PrimVal{}, 0, evalerror.New(evalerror.TypeNotPrimitive, "")
	}
	switch val.Kind {
	case value.ByValue:
		return val.Val, kind, nil
	case value.ByRef:
		pv, err := ev.Mem.ReadPrimVal(val.Ref, kind.NumBytes())
		return pv, kind, err
	}
	return value.PrimVal{}, 0, evalerror.New(evalerror.Math, "operand did not resolve to a scalar")
}
