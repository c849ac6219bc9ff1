package frame

import (
	"testing"

	"github.com/spacejam/seer/arch"
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/layout"
	"github.com/spacejam/seer/lvalue"
	"github.com/spacejam/seer/memory"
	"github.com/spacejam/seer/symbolic"
	"github.com/spacejam/seer/value"
)

// fixtureTypeSystem is a minimal hand-built TypeSystem for this
// package's tests, mirroring layout's own fixtureTypeSystem and
// lvalue's stubTypeSystem rather than wiring a real front end.
type fixtureTypeSystem struct {
	sizes   map[uint64]int64
	aligns  map[uint64]int64
	layouts map[uint64]layout.Shape
	prims   map[uint64]value.PrimValKind
	drop    ir.Instance
}

func (f *fixtureTypeSystem) Size(ty ir.Ty) (int64, bool) { s, ok := f.sizes[ty.ID]; return s, ok }
func (f *fixtureTypeSystem) Align(ty ir.Ty) int64        { return f.aligns[ty.ID] }
func (f *fixtureTypeSystem) Layout(ty ir.Ty) (layout.Shape, error) {
	s, ok := f.layouts[ty.ID]
	if !ok {
		return layout.Shape{}, evalerror.New(evalerror.Layout, ty.Name)
	}
	return s, nil
}
func (f *fixtureTypeSystem) Discriminants(ir.Ty) []int64 { return nil }
func (f *fixtureTypeSystem) PrimitiveKind(ty ir.Ty) (value.PrimValKind, bool) {
	k, ok := f.prims[ty.ID]
	return k, ok
}
func (f *fixtureTypeSystem) EraseRegions(ty ir.Ty) ir.Ty              { return ty }
func (f *fixtureTypeSystem) Monomorphize(ty ir.Ty, _ ir.Substs) ir.Ty { return ty }
func (f *fixtureTypeSystem) Normalize(ty ir.Ty) ir.Ty                 { return ty }
func (f *fixtureTypeSystem) Resolve(ir.DefID, ir.Substs) (ir.Instance, error) {
	return ir.Instance{}, nil
}
func (f *fixtureTypeSystem) ResolveClosure(ir.DefID, ir.Substs, ir.ClosureKind) (ir.Instance, error) {
	return ir.Instance{}, nil
}
func (f *fixtureTypeSystem) ResolveDrop(ir.Ty) (ir.Instance, error) { return f.drop, nil }
func (f *fixtureTypeSystem) TraitSelect(layout.TraitRef) (value.Pointer, error) {
	return value.Pointer{}, nil
}

// fixtureMIR answers MIRFor from a fixed def->body table, keyed by
// DefID rather than the full Instance since ir.Instance embeds a
// Substs slice and is therefore not itself a valid map key.
type fixtureMIR struct {
	bodies map[ir.DefID]*ir.Body
}

func (m fixtureMIR) MIRFor(instance ir.Instance) (*ir.Body, error) {
	b, ok := m.bodies[instance.Def]
	if !ok {
		return nil, evalerror.New(evalerror.NoMirFor, "")
	}
	return b, nil
}

var (
	tyI32   = ir.Ty{ID: 1, Name: "i32"}
	tyBool  = ir.Ty{ID: 2, Name: "bool"}
	tyPair  = ir.Ty{ID: 3, Name: "(i32, i32)"}
	tyUnit  = ir.Ty{ID: 4, Name: "()"}
	tyPtr   = ir.Ty{ID: 5, Name: "&i32"}
	tyNullE = ir.Ty{ID: 6, Name: "Option<&i32>"}
)

func newFixtureTS() *fixtureTypeSystem {
	return &fixtureTypeSystem{
		sizes: map[uint64]int64{
			tyI32.ID:   4,
			tyBool.ID:  1,
			tyPair.ID:  8,
			tyUnit.ID:  0,
			tyPtr.ID:   8,
			tyNullE.ID: 8,
		},
		aligns: map[uint64]int64{
			tyI32.ID: 4, tyBool.ID: 1, tyPair.ID: 4, tyPtr.ID: 8, tyNullE.ID: 8,
		},
		prims: map[uint64]value.PrimValKind{
			tyI32.ID: value.I32, tyBool.ID: value.Bool, tyPtr.ID: value.Ptr,
		},
		layouts: map[uint64]layout.Shape{
			tyPair.ID: {
				Kind:         layout.Univariant,
				FieldOffsets: []int64{0, 4},
				FieldTypes:   []ir.Ty{tyI32, tyI32},
				Align:        4,
			},
			tyNullE.ID: {
				Kind:         layout.RawNullablePointer,
				NonNullDiscr: 1,
				NullableTy:   tyPtr,
			},
		},
	}
}

func newTestEvaluator(ts layout.TypeSystem, mir layout.MIRProvider, body *ir.Body) *Evaluator {
	mem := memory.New(&arch.AMD64, symbolic.NewStore(nil), 0)
	ev := New(mem, ts, mir, DefaultLimits())
	_ = ev.PushFrame(ir.Instance{}, body, nil, lvalue.Lvalue{}, ir.Ty{}, false, Cleanup{Kind: CleanupNone})
	return ev
}

func localPlace(local ir.Local) ir.Place { return ir.Place{Kind: ir.PlaceLocal, Local: local} }

func TestExecAssignCheckedAddOverflow(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyI32}, {Ty: tyI32}, {Ty: tyPair}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()

	stmt := ir.Statement{
		Kind:  ir.StmtAssign,
		Place: localPlace(3),
		Rvalue: ir.Rvalue{
			Kind:  ir.RvalueCheckedBinaryOp,
			BinOp: ir.Add,
			Left:  ir.Const(value.FromUint64(0x7fffffff), tyI32),
			Right: ir.Const(value.FromUint64(1), tyI32),
		},
	}
	if err := ev.execAssign(f, stmt); err != nil {
		t.Fatalf("execAssign: %v", err)
	}

	got := f.Locals[3]
	if got.Kind != value.ByPair {
		t.Fatalf("expected a ByPair result, got %v", got.Kind)
	}
	lo, _ := got.Pair[0].ToBytes()
	if lo.Uint64() != 0x80000000 {
		t.Fatalf("got result %#x, want 0x80000000", lo.Uint64())
	}
	hi, _ := got.Pair[1].ToBytes()
	if hi.Uint64() != 1 {
		t.Fatalf("got overflow flag %d, want 1", hi.Uint64())
	}
}

func TestEvalDiscriminantRawNullablePointer(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyNullE}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()

	slot, err := ev.Mem.Allocate(8, 8)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := ev.Mem.WritePrimVal(slot, value.FromPointer(value.NullPointer), 8); err != nil {
		t.Fatalf("write null: %v", err)
	}
	f.Locals[1] = value.FromRef(slot)

	got, err := ev.evalDiscriminant(f, localPlace(1))
	if err != nil {
		t.Fatalf("evalDiscriminant: %v", err)
	}
	bits, _ := got.Val.ToBytes()
	if bits.Uint64() != 0 {
		t.Fatalf("got discriminant %d for a null payload, want 0", bits.Uint64())
	}

	nonNull, err := ev.Mem.Allocate(4, 4)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if err := ev.Mem.WritePrimVal(slot, value.FromPointer(nonNull), 8); err != nil {
		t.Fatalf("write non-null: %v", err)
	}
	got, err = ev.evalDiscriminant(f, localPlace(1))
	if err != nil {
		t.Fatalf("evalDiscriminant: %v", err)
	}
	bits, _ = got.Val.ToBytes()
	if bits.Uint64() != 1 {
		t.Fatalf("got discriminant %d for a non-null payload, want 1", bits.Uint64())
	}
}

func TestExecAssignAggregateRoundTrip(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyPair}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()

	stmt := ir.Statement{
		Kind:  ir.StmtAssign,
		Place: localPlace(1),
		Rvalue: ir.Rvalue{
			Kind:      ir.RvalueAggregate,
			Aggregate: ir.AggregateTuple,
			AdtTy:     tyPair,
			Fields: []ir.Operand{
				ir.Const(value.FromUint64(11), tyI32),
				ir.Const(value.FromUint64(22), tyI32),
			},
		},
	}
	if err := ev.execAssign(f, stmt); err != nil {
		t.Fatalf("execAssign: %v", err)
	}

	field1 := ir.Field(localPlace(1), 1, tyI32)
	resolved, err := ev.resolvePlace(f, field1)
	if err != nil {
		t.Fatalf("resolvePlace: %v", err)
	}
	val, err := ev.readLvalue(f, resolved.lv, resolved.ty)
	if err != nil {
		t.Fatalf("readLvalue: %v", err)
	}
	bits, _ := val.Val.ToBytes()
	if bits.Uint64() != 22 {
		t.Fatalf("got field 1 = %d, want 22", bits.Uint64())
	}
}

func TestExecAssignZeroSizedIsNoop(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyUnit}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()
	sentinel := value.FromPrimVal(value.FromUint64(0xdead))
	f.Locals[1] = sentinel

	stmt := ir.Statement{
		Kind:  ir.StmtAssign,
		Place: localPlace(1),
		Rvalue: ir.Rvalue{
			Kind:      ir.RvalueAggregate,
			Aggregate: ir.AggregateTuple,
			AdtTy:     tyUnit,
		},
	}
	if err := ev.execAssign(f, stmt); err != nil {
		t.Fatalf("execAssign: %v", err)
	}
	if f.Locals[1] != sentinel {
		t.Fatalf("expected a zero-sized write to touch nothing, got %v", f.Locals[1])
	}
}

func TestResolvePlaceForcesLocalForFieldWrite(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyPair}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()
	f.Locals[1] = value.FromPrimVal(value.FromUint64(0))

	field0 := ir.Field(localPlace(1), 0, tyI32)
	resolved, err := ev.resolvePlace(f, field0)
	if err != nil {
		t.Fatalf("resolvePlace: %v", err)
	}
	if resolved.lv.Kind != lvalue.KindPtr {
		t.Fatalf("expected the field access to force an allocation, got %v", resolved.lv.Kind)
	}
	if f.Locals[1].Kind != value.ByRef {
		t.Fatalf("expected local 1 to become ByRef in place")
	}
	if err := ev.writeLvalue(f, resolved.lv, value.FromPrimVal(value.FromUint64(5)), tyI32); err != nil {
		t.Fatalf("writeLvalue: %v", err)
	}
	got, err := ev.readLvalue(f, resolved.lv, tyI32)
	if err != nil {
		t.Fatalf("readLvalue: %v", err)
	}
	bits, _ := got.Val.ToBytes()
	if bits.Uint64() != 5 {
		t.Fatalf("got %d, want 5", bits.Uint64())
	}
}

func TestExecTerminatorGoto(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()

	cont, succ, err := ev.execTerminator(f, ir.Terminator{Kind: ir.TermGoto, Target: 2})
	if err != nil || !cont || succ != nil {
		t.Fatalf("got (%v, %v, %v), want (true, nil, nil)", cont, succ, err)
	}
	if f.Block != 2 || f.Stmt != 0 {
		t.Fatalf("got block %d stmt %d, want block 2 stmt 0", f.Block, f.Stmt)
	}
}

func TestExecTerminatorSwitchIntConcrete(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()

	term := ir.Terminator{
		Kind:    ir.TermSwitchInt,
		Discr:   ir.Const(value.FromUint64(5), tyI32),
		Values:  []int64{1, 5, 9},
		Targets: []ir.BlockID{10, 20, 30, 40},
	}
	cont, succ, err := ev.execTerminator(f, term)
	if err != nil || !cont || succ != nil {
		t.Fatalf("got (%v, %v, %v), want (true, nil, nil)", cont, succ, err)
	}
	if f.Block != 20 {
		t.Fatalf("got block %d, want 20 (the arm matching discr 5)", f.Block)
	}
}

func TestExecTerminatorSwitchIntSymbolicForks(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyI32}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()

	bytes := ev.Mem.Constraints().FreshAbstractBytes(8)
	var arr [8]value.SByte
	copy(arr[:], bytes)
	f.Locals[1] = value.FromPrimVal(value.FromAbstract(arr))

	term := ir.Terminator{
		Kind:    ir.TermSwitchInt,
		Discr:   ir.Copy(localPlace(1), tyI32),
		Values:  []int64{0, 1},
		Targets: []ir.BlockID{1, 2, 3},
	}
	cont, succ, err := ev.execTerminator(f, term)
	if err != nil || !cont {
		t.Fatalf("got (%v, _, %v), want (true, _, nil)", cont, err)
	}
	if len(succ) != 3 {
		t.Fatalf("got %d successors, want 3 (one per arm plus otherwise)", len(succ))
	}
	for i, s := range succ {
		if s.Constraint == nil {
			t.Fatalf("successor %d has no guard", i)
		}
		if s.Halts {
			t.Fatalf("successor %d should not halt (a switch fork always resumes somewhere)", i)
		}
	}
}

func TestExecTerminatorAssertConcretePanics(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()

	term := ir.Terminator{
		Kind:     ir.TermAssert,
		Cond:     ir.Const(value.FromBool(true), tyBool),
		Expected: false,
		Msg:      "explicit panic",
	}
	cont, succ, err := ev.execTerminator(f, term)
	if cont || succ != nil {
		t.Fatalf("got (%v, %v), want (false, nil)", cont, succ)
	}
	if !evalerror.Is(err, evalerror.Panic) {
		t.Fatalf("got err %v, want a Panic", err)
	}
}

func TestExecTerminatorAssertSymbolicForks(t *testing.T) {
	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyBool}}}
	ev := newTestEvaluator(newFixtureTS(), fixtureMIR{}, body)
	f := ev.top()

	bytes := ev.Mem.Constraints().FreshAbstractBytes(8)
	var arr [8]value.SByte
	copy(arr[:], bytes)
	f.Locals[1] = value.FromPrimVal(value.FromAbstract(arr))

	term := ir.Terminator{
		Kind:     ir.TermAssert,
		Cond:     ir.Copy(localPlace(1), tyBool),
		Expected: false,
		Msg:      "explicit panic",
		Target:   7,
	}
	cont, succ, err := ev.execTerminator(f, term)
	if err != nil || !cont || len(succ) != 2 {
		t.Fatalf("got (%v, %v, %v), want (true, 2 successors, nil)", cont, succ, err)
	}
	if succ[0].Halts || succ[0].Target != 7 {
		t.Fatalf("expected the success arm to resume at Target, got %+v", succ[0])
	}
	if !succ[1].Halts || !evalerror.Is(succ[1].HaltErr, evalerror.Panic) {
		t.Fatalf("expected the failure arm to halt in Panic, got %+v", succ[1])
	}
}

func TestExecTerminatorCallPushesFrameAndReturnWritesBack(t *testing.T) {
	callee := ir.Instance{Def: 42}
	calleeBody := &ir.Body{
		LocalDecls: []ir.LocalDecl{{Ty: tyI32}, {Ty: tyI32}},
		Blocks: []ir.BasicBlock{{
			Statements: []ir.Statement{{
				Kind:   ir.StmtAssign,
				Place:  localPlace(0),
				Rvalue: ir.Rvalue{Kind: ir.RvalueUse, Operand: ir.Copy(localPlace(1), tyI32)},
			}},
			Terminator: ir.Terminator{Kind: ir.TermReturn},
		}},
	}
	mir := fixtureMIR{bodies: map[ir.DefID]*ir.Body{callee.Def: calleeBody}}

	callTarget := ir.BlockID(1)
	callerBody := &ir.Body{
		LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyI32}},
		Blocks: []ir.BasicBlock{
			{Terminator: ir.Terminator{
				Kind:       ir.TermCall,
				Callee:     callee,
				Args:       []ir.Operand{ir.Const(value.FromUint64(7), tyI32)},
				Dest:       localPlace(1),
				DestTy:     tyI32,
				CallTarget: &callTarget,
			}},
			{Terminator: ir.Terminator{Kind: ir.TermReturn}},
		},
	}
	ev := newTestEvaluator(newFixtureTS(), mir, callerBody)
	caller := ev.top()

	cont, succ, err := ev.execTerminator(caller, callerBody.Blocks[0].Terminator)
	if err != nil || !cont || succ != nil {
		t.Fatalf("got (%v, %v, %v), want (true, nil, nil)", cont, succ, err)
	}
	if len(ev.Stack) != 2 {
		t.Fatalf("got %d frames, want 2 after a call", len(ev.Stack))
	}

	calleeFrame := ev.top()
	if err := ev.execAssign(calleeFrame, calleeBody.Blocks[0].Statements[0]); err != nil {
		t.Fatalf("callee execAssign: %v", err)
	}
	cont, succ, err = ev.execTerminator(calleeFrame, calleeBody.Blocks[0].Terminator)
	if err != nil || !cont || succ != nil {
		t.Fatalf("got (%v, %v, %v), want (true, nil, nil)", cont, succ, err)
	}

	if len(ev.Stack) != 1 {
		t.Fatalf("got %d frames, want 1 after the callee returns", len(ev.Stack))
	}
	if ev.top() != caller {
		t.Fatalf("expected the caller frame back on top")
	}
	if caller.Block != callTarget {
		t.Fatalf("got block %d, want the call target %d", caller.Block, callTarget)
	}
	got := caller.Locals[1]
	bits, _ := got.Val.ToBytes()
	if bits.Uint64() != 7 {
		t.Fatalf("got return value %d, want 7", bits.Uint64())
	}
}

func TestExecTerminatorDropInvokesGlueAndResumes(t *testing.T) {
	dropInst := ir.Instance{Def: 99}
	dropBody := &ir.Body{
		LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyPtr}},
		Blocks:     []ir.BasicBlock{{Terminator: ir.Terminator{Kind: ir.TermReturn}}},
	}
	ts := newFixtureTS()
	ts.drop = dropInst
	mir := fixtureMIR{bodies: map[ir.DefID]*ir.Body{dropInst.Def: dropBody}}

	body := &ir.Body{LocalDecls: []ir.LocalDecl{{Ty: tyUnit}, {Ty: tyPair}}}
	ev := newTestEvaluator(ts, mir, body)
	f := ev.top()
	f.Locals[1] = value.FromPrimVal(value.FromUint64(0))

	term := ir.Terminator{Kind: ir.TermDrop, DropPlace: localPlace(1), DropTy: tyPair, Target: 3}
	cont, succ, err := ev.execTerminator(f, term)
	if err != nil || !cont || succ != nil {
		t.Fatalf("got (%v, %v, %v), want (true, nil, nil)", cont, succ, err)
	}
	if len(ev.Stack) != 2 {
		t.Fatalf("got %d frames, want 2 after a drop call", len(ev.Stack))
	}
	dropFrame := ev.top()
	if dropFrame.Locals[1].Kind != value.ByRef {
		t.Fatalf("expected the drop glue's receiver argument to be a reference")
	}

	cont, succ, err = ev.execTerminator(dropFrame, dropBody.Blocks[0].Terminator)
	if err != nil || !cont || succ != nil {
		t.Fatalf("got (%v, %v, %v), want (true, nil, nil)", cont, succ, err)
	}
	if len(ev.Stack) != 1 || ev.top().Block != 3 {
		t.Fatalf("expected the caller to resume at block 3, got stack depth %d block %d", len(ev.Stack), ev.top().Block)
	}
}
