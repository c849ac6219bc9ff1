package frame

import (
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/layout"
	"github.com/spacejam/seer/lvalue"
	"github.com/spacejam/seer/value"
)

// evalUse reads a Copy/Move/Constant operand as a full Value — unlike
// evalOperand, this does not require the place to be a primitive scalar
// (spec §4.6: `Use` may copy an aggregate place verbatim).
func (ev *Evaluator) evalUse(f *Frame, op ir.Operand) (value.Value, error) {
	if op.Kind == ir.OperandConstant {
		return value.FromPrimVal(op.Const), nil
	}
	r, err := ev.resolvePlace(f, op.Place)
	if err != nil {
		return value.Value{}, err
	}
	return ev.readLvalue(f, r.lv, r.ty)
}

// evalRvalue evaluates every Rvalue form except Aggregate and Repeat,
// which need direct access to the destination's address and are
// handled by execAssign before reaching here.
func (ev *Evaluator) evalRvalue(f *Frame, rv ir.Rvalue, destTy ir.Ty) (value.Value, error) {
	switch rv.Kind {
	case ir.RvalueUse:
		return ev.evalUse(f, rv.Operand)
	case ir.RvalueBinaryOp, ir.RvalueCheckedBinaryOp:
		return ev.evalBinOp(f, rv)
	case ir.RvalueUnaryOp:
		return ev.evalUnOp(f, rv)
	case ir.RvalueLen:
		return ev.evalLen(f, rv.Place)
	case ir.RvalueRef:
		return ev.evalRef(f, rv.Place)
	case ir.RvalueNullaryOp:
		return ev.evalNullaryOp(f, rv)
	case ir.RvalueCast:
		return ev.evalCast(f, rv, destTy)
	case ir.RvalueDiscriminant:
		return ev.evalDiscriminant(f, rv.Place)
	}
	return value.Value{}, evalerror.New(evalerror.Unimplemented, "rvalue kind")
}

func (ev *Evaluator) evalLen(f *Frame, place ir.Place) (value.Value, error) {
	r, err := ev.resolvePlace(f, place)
	if err != nil {
		return value.Value{}, err
	}
	if r.lv.Kind == lvalue.KindPtr && r.lv.Extra.Kind == lvalue.ExtraLength {
		return value.FromPrimVal(value.FromUint64(r.lv.Extra.Length)), nil
	}
	shape, err := ev.TS.Layout(r.ty)
	if err != nil {
		return value.Value{}, err
	}
	if shape.Kind != layout.Array && shape.Kind != layout.Vector {
		return value.Value{}, evalerror.New(evalerror.Layout, "Len applied to a non-array, non-slice place")
	}
	return value.FromPrimVal(value.FromUint64(shape.Count)), nil
}

func (ev *Evaluator) evalRef(f *Frame, place ir.Place) (value.Value, error) {
	r, err := ev.resolvePlace(f, place)
	if err != nil {
		return value.Value{}, err
	}
	lv := r.lv
	if lv.Kind == lvalue.KindLocal {
		forced, err := ev.forceLocal(f, lv, r.ty)
		if err != nil {
			return value.Value{}, err
		}
		lv = forced
	}
	ptr, err := lv.ToPtr()
	if err != nil {
		return value.Value{}, err
	}
	switch lv.Extra.Kind {
	case lvalue.ExtraLength:
		return value.FromPair(value.FromPointer(ptr), value.FromUint64(lv.Extra.Length)), nil
	case lvalue.ExtraVtable:
		return value.FromPair(value.FromPointer(ptr), value.FromPointer(lv.Extra.Vtable)), nil
	default:
		return value.FromPrimVal(value.FromPointer(ptr)), nil
	}
}

func (ev *Evaluator) evalNullaryOp(f *Frame, rv ir.Rvalue) (value.Value, error) {
	switch rv.NullOp {
	case ir.Box:
		size, ok := ev.TS.Size(rv.Ty)
		if !ok {
			return value.Value{}, evalerror.New(evalerror.Layout, "cannot box an unsized type")
		}
		align := ev.TS.Align(rv.Ty)
		ptr, err := ev.Mem.Allocate(uint64(size), uint64(align))
		if err != nil {
			return value.Value{}, err
		}
		return value.FromRef(ptr), nil
	case ir.SizeOf:
		size, ok := ev.TS.Size(rv.Ty)
		if !ok {
			return value.Value{}, evalerror.New(evalerror.Layout, "size_of an unsized type")
		}
		return value.FromPrimVal(value.FromUint64(uint64(size))), nil
	}
	return value.Value{}, evalerror.New(evalerror.Unimplemented, "nullary op")
}

// evalDiscriminant reads the enum discriminant of place, dispatching on
// the shape the layout adapter reports for its type (spec §6's
// General/RawNullablePointer/StructWrappedNullablePointer/CEnum).
func (ev *Evaluator) evalDiscriminant(f *Frame, place ir.Place) (value.Value, error) {
	r, err := ev.resolvePlace(f, place)
	if err != nil {
		return value.Value{}, err
	}
	forced := r.lv
	if forced.Kind == lvalue.KindLocal {
		forced, err = ev.forceLocal(f, forced, r.ty)
		if err != nil {
			return value.Value{}, err
		}
	}
	ptr, err := forced.ToPtr()
	if err != nil {
		return value.Value{}, err
	}
	shape, err := ev.TS.Layout(r.ty)
	if err != nil {
		return value.Value{}, err
	}
	switch shape.Kind {
	case layout.General:
		kind, ok := ev.TS.PrimitiveKind(shape.DiscrTy)
		if !ok {
			return value.Value{}, evalerror.New(evalerror.Layout, "discriminant type is not primitive")
		}
		pv, err := ev.Mem.ReadPrimVal(ptr.Add(shape.DiscrOffset), kind.NumBytes())
		return value.FromPrimVal(pv), err
	case layout.CEnum:
		size, _ := ev.TS.Size(r.ty)
		pv, err := ev.Mem.ReadPrimVal(ptr, uint64(size))
		return value.FromPrimVal(pv), err
	case layout.RawNullablePointer:
		p, err := ev.Mem.ReadPtr(ptr)
		if err != nil {
			return value.Value{}, err
		}
		if p.Alloc == value.NullAllocID {
			return value.FromPrimVal(value.FromUint64(uint64(1 - shape.NonNullDiscr))), nil
		}
		return value.FromPrimVal(value.FromUint64(uint64(shape.NonNullDiscr))), nil
	case layout.StructWrappedNullablePointer:
		inner := ptr
		for _, idx := range shape.DiscrFieldPath {
			off, _, ok := shape.FieldOffset(idx)
			if !ok {
				return value.Value{}, evalerror.New(evalerror.Layout, "bad discriminant field path")
			}
			inner = inner.Add(off)
		}
		p, err := ev.Mem.ReadPtr(inner)
		if err != nil {
			return value.Value{}, err
		}
		if p.Alloc == value.NullAllocID {
			return value.FromPrimVal(value.FromUint64(uint64(1 - shape.NonNullDiscr))), nil
		}
		return value.FromPrimVal(value.FromUint64(uint64(shape.NonNullDiscr))), nil
	default:
		return value.Value{}, evalerror.New(evalerror.TypeNotPrimitive, "discriminant_value applied to a non-enum shape")
	}
}

// writeAggregate materializes an Aggregate rvalue directly into the
// destination place's address — zero-sized aggregates perform no
// allocation and touch no bytes, per spec §8's boundary behaviour.
func (ev *Evaluator) writeAggregate(f *Frame, dest resolved, rv ir.Rvalue) error {
	size, ok := ev.TS.Size(rv.AdtTy)
	if !ok {
		return evalerror.New(evalerror.Layout, "aggregate type has no definite size")
	}
	if size == 0 {
		return nil
	}
	lv := dest.lv
	if lv.Kind == lvalue.KindLocal {
		forced, err := ev.forceLocal(f, lv, rv.AdtTy)
		if err != nil {
			return err
		}
		lv = forced
	}
	ptr, err := lv.ToPtr()
	if err != nil {
		return err
	}

	if rv.Aggregate == ir.AggregateArray || rv.Aggregate == ir.AggregateTuple {
		shape, err := ev.TS.Layout(rv.AdtTy)
		if err != nil {
			return err
		}
		return ev.writeFields(f, ptr, shape.FieldOffsets, shape.FieldTypes, rv.Fields)
	}

	shape, err := ev.TS.Layout(rv.AdtTy)
	if err != nil {
		return err
	}
	switch shape.Kind {
	case layout.Univariant:
		return ev.writeFields(f, ptr, shape.FieldOffsets, shape.FieldTypes, rv.Fields)

	case layout.General:
		variant := shape.Variants[rv.Variant]
		kind, ok := ev.TS.PrimitiveKind(shape.DiscrTy)
		if !ok {
			return evalerror.New(evalerror.Layout, "discriminant type is not primitive")
		}
		if err := ev.Mem.WritePrimVal(ptr.Add(shape.DiscrOffset), value.FromUint64(uint64(variant.Discriminant)), kind.NumBytes()); err != nil {
			return err
		}
		return ev.writeFields(f, ptr, variant.FieldOffsets, variant.FieldTypes, rv.Fields)

	case layout.RawNullablePointer:
		if int64(rv.Variant) == shape.NonNullDiscr {
			return ev.writeFields(f, ptr, []int64{0}, []ir.Ty{shape.NullableTy}, rv.Fields)
		}
		return ev.Mem.WritePrimVal(ptr, value.FromPointer(value.NullPointer), uint64(ev.ptrSize()))

	case layout.StructWrappedNullablePointer:
		if int64(rv.Variant) == shape.NonNullDiscr {
			return ev.writeFields(f, ptr, shape.FieldOffsets, shape.FieldTypes, rv.Fields)
		}
		inner := ptr
		for _, idx := range shape.DiscrFieldPath {
			off, _, ok := shape.FieldOffset(idx)
			if !ok {
				return evalerror.New(evalerror.Layout, "bad discriminant field path")
			}
			inner = inner.Add(off)
		}
		return ev.Mem.WritePrimVal(inner, value.FromPointer(value.NullPointer), uint64(ev.ptrSize()))

	case layout.CEnum:
		discrs := ev.TS.Discriminants(rv.AdtTy)
		var discr int64
		if rv.Variant < len(discrs) {
			discr = discrs[rv.Variant]
		}
		return ev.Mem.WritePrimVal(ptr, value.FromUint64(uint64(discr)), uint64(size))

	case layout.UntaggedUnion:
		if len(rv.Fields) == 0 {
			return nil
		}
		val, err := ev.evalUse(f, rv.Fields[0])
		if err != nil {
			return err
		}
		return ev.writeValueAt(ptr, val, shape.FieldTypes[0])

	case layout.Vector:
		offsets := make([]int64, len(rv.Fields))
		types := make([]ir.Ty, len(rv.Fields))
		elemSize, _ := ev.TS.Size(shape.Elem)
		for i := range rv.Fields {
			offsets[i] = int64(i) * elemSize
			types[i] = shape.Elem
		}
		return ev.writeFields(f, ptr, offsets, types, rv.Fields)

	default:
		return evalerror.New(evalerror.Unimplemented, "aggregate write for this shape")
	}
}

func (ev *Evaluator) writeFields(f *Frame, base value.Pointer, offsets []int64, types []ir.Ty, fields []ir.Operand) error {
	for i, op := range fields {
		if i >= len(offsets) {
			break
		}
		val, err := ev.evalUse(f, op)
		if err != nil {
			return err
		}
		if err := ev.writeValueAt(base.Add(offsets[i]), val, types[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) writeValueAt(ptr value.Pointer, val value.Value, ty ir.Ty) error {
	if kind, ok := ev.TS.PrimitiveKind(ty); ok {
		pv, err := toPrimVal(val)
		if err != nil {
			return err
		}
		return ev.Mem.WritePrimVal(ptr, pv, kind.NumBytes())
	}
	size, ok := ev.TS.Size(ty)
	if !ok || size == 0 {
		return nil
	}
	src, err := ptrOf(val)
	if err != nil {
		return err
	}
	return ev.Mem.Copy(src, ptr, uint64(size), uint64(ev.TS.Align(ty)))
}

func (ev *Evaluator) ptrSize() int { return ev.Mem.PointerSize() }

// writeRepeat materializes a Repeat rvalue ([x; n]) into the
// destination's address.
func (ev *Evaluator) writeRepeat(f *Frame, dest resolved, rv ir.Rvalue) error {
	size, ok := ev.TS.Size(dest.ty)
	if !ok {
		return evalerror.New(evalerror.Layout, "repeat destination has no definite size")
	}
	if size == 0 {
		return nil
	}
	lv := dest.lv
	if lv.Kind == lvalue.KindLocal {
		forced, err := ev.forceLocal(f, lv, dest.ty)
		if err != nil {
			return err
		}
		lv = forced
	}
	ptr, err := lv.ToPtr()
	if err != nil {
		return err
	}
	val, err := ev.evalUse(f, rv.Operand)
	if err != nil {
		return err
	}
	elemSize := size / int64(rv.Count)
	for i := uint64(0); i < rv.Count; i++ {
		if err := ev.writeValueAtRawSize(ptr.Add(int64(i)*elemSize), val, elemSize); err != nil {
			return err
		}
	}
	return nil
}

func (ev *Evaluator) writeValueAtRawSize(ptr value.Pointer, val value.Value, size int64) error {
	pv, err := toPrimVal(val)
	if err != nil {
		return err
	}
	return ev.Mem.WritePrimVal(ptr, pv, uint64(size))
}
