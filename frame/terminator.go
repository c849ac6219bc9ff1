package frame

import (
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/intrinsic"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/lvalue"
	"github.com/spacejam/seer/symbolic"
	"github.com/spacejam/seer/value"
)

// execTerminator runs the terminator that ends f's current block,
// dispatching on its TerminatorKind per spec §4.6/§4.7.
func (ev *Evaluator) execTerminator(f *Frame, term ir.Terminator) (bool, []Successor, error) {
	switch term.Kind {
	case ir.TermGoto:
		f.Block = term.Target
		f.Stmt = 0
		return true, nil, nil

	case ir.TermSwitchInt:
		return ev.execSwitchInt(f, term)

	case ir.TermAssert:
		return ev.execAssert(f, term)

	case ir.TermCall:
		return ev.execCall(f, term)

	case ir.TermReturn:
		return ev.execReturn()

	case ir.TermDrop:
		return ev.execDrop(f, term)

	case ir.TermUnreachable:
		return false, nil, evalerror.New(evalerror.Unreachable, "")
	}
	return false, nil, evalerror.New(evalerror.Unimplemented, "unknown terminator kind")
}

// execSwitchInt picks the arm matching a concrete discriminant directly
// (advancing f in place, no fork); a symbolic discriminant instead
// reports one Successor per arm plus an otherwise arm, leaving the
// executor to clone a state per branch and push its guard.
func (ev *Evaluator) execSwitchInt(f *Frame, term ir.Terminator) (bool, []Successor, error) {
	discr, kind, err := ev.evalOperand(f, term.Discr)
	if err != nil {
		return false, nil, err
	}

	if bits, ok := discr.ToBytes(); ok {
		for i, v := range term.Values {
			if bits.Uint64() == uint64(v) {
				f.Block = term.Targets[i]
				f.Stmt = 0
				return true, nil, nil
			}
		}
		f.Block = term.Targets[len(term.Values)]
		f.Stmt = 0
		return true, nil, nil
	}

	discrExpr := symbolic.Leaf(discr, kind)
	successors := make([]Successor, 0, len(term.Values)+1)
	var otherwise *symbolic.Expr
	for i, v := range term.Values {
		arm := &symbolic.Expr{
			Kind:  symbolic.ExprBinOp,
			Op:    ir.Eq,
			Left:  discrExpr,
			Right: symbolic.Leaf(value.FromUint64(uint64(v)), kind),
		}
		successors = append(successors, Successor{Target: term.Targets[i], Constraint: arm})

		ne := &symbolic.Expr{
			Kind:  symbolic.ExprBinOp,
			Op:    ir.Ne,
			Left:  discrExpr,
			Right: symbolic.Leaf(value.FromUint64(uint64(v)), kind),
		}
		if otherwise == nil {
			otherwise = ne
		} else {
			otherwise = &symbolic.Expr{Kind: symbolic.ExprAnd, Left: otherwise, Right: ne}
		}
	}
	successors = append(successors, Successor{Target: term.Targets[len(term.Values)], Constraint: otherwise})
	return true, successors, nil
}

// execAssert checks cond against expected; a concrete mismatch halts
// the state with the assert's Panic message, a concrete match
// continues to Target. A symbolic condition forks into the success arm
// (guarded by cond == expected) and a failure arm that halts the state
// in Panic as soon as it is stepped (guarded by cond != expected).
func (ev *Evaluator) execAssert(f *Frame, term ir.Terminator) (bool, []Successor, error) {
	cond, kind, err := ev.evalOperand(f, term.Cond)
	if err != nil {
		return false, nil, err
	}

	if bits, ok := cond.ToBytes(); ok {
		if (bits.Uint64() != 0) == term.Expected {
			f.Block = term.Target
			f.Stmt = 0
			return true, nil, nil
		}
		return false, nil, evalerror.New(evalerror.Panic, term.Msg)
	}

	condExpr := symbolic.Leaf(cond, kind)
	expected := symbolic.Leaf(value.FromBool(term.Expected), kind)
	success := Successor{
		Target:     term.Target,
		Constraint: &symbolic.Expr{Kind: symbolic.ExprBinOp, Op: ir.Eq, Left: condExpr, Right: expected},
	}
	failure := Successor{
		Constraint: &symbolic.Expr{Kind: symbolic.ExprBinOp, Op: ir.Ne, Left: condExpr, Right: expected},
		Halts:      true,
		HaltErr:    evalerror.New(evalerror.Panic, term.Msg),
	}
	return true, []Successor{success, failure}, nil
}

// execCall evaluates a direct call's arguments and pushes a new frame
// for its already-resolved Callee instance, recording how the caller
// resumes once it returns. Indirect calls through a function pointer
// or trait-object vtable are not resolved here (see ir.Terminator's
// Callee doc comment).
func (ev *Evaluator) execCall(f *Frame, term ir.Terminator) (bool, []Successor, error) {
	if term.Callee.Intrinsic != "" {
		return ev.execIntrinsicCall(f, term)
	}

	args := make([]value.Value, len(term.Args))
	for i, op := range term.Args {
		v, err := ev.evalUse(f, op)
		if err != nil {
			return false, nil, err
		}
		args[i] = v
	}

	body, err := ev.MIR.MIRFor(term.Callee)
	if err != nil {
		return false, nil, err
	}

	var dest lvalue.Lvalue
	var destTy ir.Ty
	hasDest := term.CallTarget != nil
	cleanup := Cleanup{Kind: CleanupNone}
	if hasDest {
		r, err := ev.resolvePlace(f, term.Dest)
		if err != nil {
			return false, nil, err
		}
		dest, destTy = r.lv, r.ty
		cleanup = Cleanup{Kind: CleanupGoto, Target: *term.CallTarget}
	}

	if err := ev.PushFrame(term.Callee, body, args, dest, destTy, hasDest, cleanup); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// execIntrinsicCall evaluates a call whose callee resolved to a
// compiler intrinsic rather than an ordinary item: it has no MIR body,
// so it never reaches PushFrame. Arguments are reduced to PrimVals
// (intrinsic.Call never needs a whole aggregate) and the result, if
// any, is written straight to the call's destination place without an
// intervening frame.
func (ev *Evaluator) execIntrinsicCall(f *Frame, term ir.Terminator) (bool, []Successor, error) {
	args := make([]value.PrimVal, len(term.Args))
	kinds := make([]value.PrimValKind, len(term.Args))
	for i, op := range term.Args {
		v, k, err := ev.evalOperand(f, op)
		if err != nil {
			return false, nil, err
		}
		args[i] = v
		kinds[i] = k
	}

	var g intrinsic.Generics
	if substs := term.Callee.Substs; len(substs) > 0 {
		if size, ok := ev.TS.Size(substs[0]); ok {
			g.Size = uint64(size)
		}
		g.Align = uint64(ev.TS.Align(substs[0]))
	}
	if substs := term.Callee.Substs; len(substs) > 1 {
		if size, ok := ev.TS.Size(substs[1]); ok {
			g.Size2 = uint64(size)
		}
		g.Align2 = uint64(ev.TS.Align(substs[1]))
	}

	result, err := intrinsic.Call(term.Callee.Intrinsic, ev.Mem, args, kinds, g)
	if err != nil {
		return false, nil, err
	}

	if term.CallTarget != nil {
		r, err := ev.resolvePlace(f, term.Dest)
		if err != nil {
			return false, nil, err
		}
		if size, ok := ev.TS.Size(r.ty); !ok || size != 0 {
			if err := ev.writeLvalue(f, r.lv, result, r.ty); err != nil {
				return false, nil, err
			}
		}
		f.Block = *term.CallTarget
		f.Stmt = 0
	}
	return true, nil, nil
}

// execReturn pops the current frame and applies its StackPopCleanup:
// CleanupNone halts the whole evaluator state cleanly (the root frame
// returned); CleanupMarkStatic seals the static the frame initialized
// before resuming the caller; both that case and CleanupGoto write the
// return value back to the caller's destination and resume it at the
// cleanup's Target.
func (ev *Evaluator) execReturn() (bool, []Successor, error) {
	popped := ev.Stack[len(ev.Stack)-1]
	returnVal := popped.Locals[0]
	ev.Stack = ev.Stack[:len(ev.Stack)-1]

	if popped.Cleanup.Kind == CleanupMarkStatic {
		if err := ev.Mem.MarkStaticInitialized(popped.Cleanup.StaticID, popped.Cleanup.Mutable); err != nil {
			return false, nil, err
		}
	}
	if popped.Cleanup.Kind == CleanupNone {
		return false, nil, nil
	}

	if popped.HasDest {
		if err := ev.writeLvalue(popped, popped.Dest, returnVal, popped.DestTy); err != nil {
			return false, nil, err
		}
	}

	caller := ev.top()
	caller.Block = popped.Cleanup.Target
	caller.Stmt = 0
	return true, nil, nil
}

// execDrop invokes ty's drop glue against DropPlace as an ordinary
// call, forcing the place into an allocation first since drop glue
// always takes its receiver by reference.
func (ev *Evaluator) execDrop(f *Frame, term ir.Terminator) (bool, []Successor, error) {
	inst, err := ev.TS.ResolveDrop(term.DropTy)
	if err != nil {
		return false, nil, err
	}
	body, err := ev.MIR.MIRFor(inst)
	if err != nil {
		return false, nil, err
	}

	place, err := ev.resolvePlace(f, term.DropPlace)
	if err != nil {
		return false, nil, err
	}
	lv := place.lv
	if lv.Kind == lvalue.KindLocal {
		forced, err := ev.forceLocal(f, lv, place.ty)
		if err != nil {
			return false, nil, err
		}
		lv = forced
	}
	ptr, err := lv.ToPtr()
	if err != nil {
		return false, nil, err
	}

	cleanup := Cleanup{Kind: CleanupGoto, Target: term.Target}
	if err := ev.PushFrame(inst, body, []value.Value{value.FromRef(ptr)}, lvalue.Lvalue{}, ir.Ty{}, false, cleanup); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}
