package frame

import (
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/value"
)

// evalBinOp evaluates a BinaryOp/CheckedBinaryOp rvalue. Pure scalar
// arithmetic delegates to the constraint store (symbolic.Store.AddBinOp);
// any operand that is a pointer is routed to evalPointerBinOp instead,
// since pointer arithmetic/comparison needs allocation identity that
// the constraint store does not track.
func (ev *Evaluator) evalBinOp(f *Frame, rv ir.Rvalue) (value.Value, error) {
	l, kind, err := ev.evalOperand(f, rv.Left)
	if err != nil {
		return value.Value{}, err
	}
	r, _, err := ev.evalOperand(f, rv.Right)
	if err != nil {
		return value.Value{}, err
	}

	checked := rv.Kind == ir.RvalueCheckedBinaryOp

	if kind.IsPtr() || l.Kind == value.KindPointerVal || r.Kind == value.KindPointerVal {
		result, err := ev.evalPointerBinOp(rv.BinOp, l, r)
		if err != nil {
			return value.Value{}, err
		}
		if checked {
			return value.FromPair(result, value.FromBool(false)), nil
		}
		return value.FromPrimVal(result), nil
	}

	result, overflow, err := ev.Mem.Constraints().AddBinOp(rv.BinOp, l, r, kind)
	if err != nil {
		return value.Value{}, err
	}
	if checked {
		return value.FromPair(result, value.FromBool(overflow)), nil
	}
	return value.FromPrimVal(result), nil
}

// evalUnOp evaluates a UnaryOp rvalue.
func (ev *Evaluator) evalUnOp(f *Frame, rv ir.Rvalue) (value.Value, error) {
	v, kind, err := ev.evalOperand(f, rv.Operand)
	if err != nil {
		return value.Value{}, err
	}
	result, err := ev.Mem.Constraints().AddUnOp(rv.UnOp, v, kind)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromPrimVal(result), nil
}

func offsetPrimVal(o value.Offset) value.PrimVal {
	if o.IsConcrete() {
		return value.FromUint64(o.Concrete())
	}
	return value.FromAbstract(o.Symbolic())
}

// evalPointerBinOp handles the operators spec §4.2/§9(a) carve out for
// pointer operands: Offset (pointer + integer), Eq/Ne (defined across
// allocations), and Lt/Le/Gt/Ge/Sub (fail-fast InvalidPointerMath
// across different allocations — Open Question (a)'s resolution).
func (ev *Evaluator) evalPointerBinOp(op ir.BinOp, l, r value.PrimVal) (value.PrimVal, error) {
	switch op {
	case ir.Offset:
		ptr, ok := l.ToPointer()
		if !ok {
			return value.PrimVal{}, evalerror.New(evalerror.Math, "offset requires a pointer left operand")
		}
		sum, _, err := ev.Mem.Constraints().AddBinOp(ir.Add, offsetPrimVal(ptr.Offset), r, value.U64)
		if err != nil {
			return value.PrimVal{}, err
		}
		var newOffset value.Offset
		if sum.Kind == value.KindBytesVal {
			newOffset = value.ConcreteOffset(sum.Bytes.Uint64())
		} else {
			newOffset = value.AbstractOffset(sum.Abstract)
		}
		return value.FromPointer(value.Pointer{Alloc: ptr.Alloc, Offset: newOffset}), nil

	case ir.Eq, ir.Ne:
		lp, lok := l.ToPointer()
		rp, rok := r.ToPointer()
		if !lok || !rok {
			return value.PrimVal{}, evalerror.New(evalerror.Math, "pointer comparison requires two pointer operands")
		}
		if lp.Alloc != rp.Alloc {
			return value.FromBool(op == ir.Ne), nil
		}
		result, _, err := ev.Mem.Constraints().AddBinOp(op, offsetPrimVal(lp.Offset), offsetPrimVal(rp.Offset), value.U64)
		return result, err

	default: // Lt, Le, Gt, Ge, Sub
		lp, lok := l.ToPointer()
		rp, rok := r.ToPointer()
		if !lok || !rok {
			return value.PrimVal{}, evalerror.New(evalerror.Math, "pointer comparison requires two pointer operands")
		}
		if lp.Alloc != rp.Alloc {
			return value.PrimVal{}, evalerror.New(evalerror.InvalidPointerMath, "")
		}
		result, _, err := ev.Mem.Constraints().AddBinOp(op, offsetPrimVal(lp.Offset), offsetPrimVal(rp.Offset), value.U64)
		return result, err
	}
}
