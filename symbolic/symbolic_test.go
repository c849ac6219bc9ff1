package symbolic

import (
	"testing"

	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/value"
)

func TestAddBinOpConcreteAdd(t *testing.T) {
	s := NewStore(nil)
	result, overflow, err := s.AddBinOp(ir.Add, value.FromUint64(2), value.FromUint64(3), value.I32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overflow {
		t.Fatalf("did not expect overflow")
	}
	bits, _ := result.ToBytes()
	if bits.Uint64() != 5 {
		t.Fatalf("got %v, want 5", bits)
	}
}

func TestAddBinOpOverflowI32(t *testing.T) {
	s := NewStore(nil)
	maxI32 := value.FromUint64(uint64(int64(1)<<31 - 1))
	result, overflow, err := s.AddBinOp(ir.Add, maxI32, value.FromUint64(1), value.I32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !overflow {
		t.Fatalf("expected overflow adding 1 to i32::MAX")
	}
	bits, _ := result.ToBytes()
	if int32(bits.Uint64()) != -1<<31 {
		t.Fatalf("got %d, want i32::MIN", int32(bits.Uint64()))
	}
}

func TestAddBinOpDivByZero(t *testing.T) {
	s := NewStore(nil)
	_, _, err := s.AddBinOp(ir.Div, value.FromUint64(1), value.FromUint64(0), value.I32)
	if err == nil {
		t.Fatalf("expected an error dividing by zero")
	}
}

func TestAddBinOpAbstractProducesFreshSymbol(t *testing.T) {
	s := NewStore(nil)
	abstract := value.FromAbstract([8]value.SByte(s.FreshAbstractBytes(8)))
	result, overflow, err := s.AddBinOp(ir.Add, abstract, value.FromUint64(1), value.I32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overflow {
		t.Fatalf("abstract results never report overflow directly")
	}
	if result.Kind != value.KindAbstractVal {
		t.Fatalf("expected an abstract result, got %v", result.Kind)
	}
	id := result.Abstract[0].ID()
	if _, ok := s.defs[id]; !ok {
		t.Fatalf("expected a recorded definition for the fresh symbol")
	}
}

func TestAddBinOpSymbolicShiftPushesWidthGuard(t *testing.T) {
	s := NewStore(nil)
	shiftAmount := value.FromAbstract([8]value.SByte(s.FreshAbstractBytes(8)))
	if _, _, err := s.AddBinOp(ir.Shl, value.FromUint64(1), shiftAmount, value.I32); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Constraints()) != 1 {
		t.Fatalf("expected one width guard constraint, got %d", len(s.Constraints()))
	}
}

func TestAddBinOpShiftMasksOversizedAmount(t *testing.T) {
	s := NewStore(nil)
	result, overflow, err := s.AddBinOp(ir.Shl, value.FromUint64(1), value.FromUint64(9), value.U8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !overflow {
		t.Fatalf("expected overflow shifting by 9 on an 8-bit width")
	}
	bits, _ := result.ToBytes()
	if bits.Uint64() != 2 {
		t.Fatalf("got %d, want 2 (1 << (9 mod 8))", bits.Uint64())
	}
}

func TestAddBinOpArithmeticShiftMasksOversizedAmount(t *testing.T) {
	s := NewStore(nil)
	result, overflow, err := s.AddBinOp(ir.Shr, value.FromUint64(4), value.FromUint64(8), value.I8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !overflow {
		t.Fatalf("expected overflow shifting by 8 on an 8-bit width")
	}
	bits, _ := result.ToBytes()
	if int8(bits.Uint64()) != 4 {
		t.Fatalf("got %d, want 4 (4 >> (8 mod 8))", int8(bits.Uint64()))
	}
}

func TestAddUnOpNot(t *testing.T) {
	s := NewStore(nil)
	result, err := s.AddUnOp(ir.Not, value.FromBool(true), value.Bool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bits, _ := result.ToBytes()
	if bits.Uint64() != 0 {
		t.Fatalf("!true should be false, got %v", bits)
	}
}

func TestAddUnOpNeg(t *testing.T) {
	s := NewStore(nil)
	result, err := s.AddUnOp(ir.Neg, value.FromUint64(5), value.I32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bits, _ := result.ToBytes()
	if int32(bits.Uint64()) != -5 {
		t.Fatalf("got %d, want -5", int32(bits.Uint64()))
	}
}

func TestFeasibleFoldsAccumulatedConstraints(t *testing.T) {
	s := NewStore(AlwaysFeasible)
	s.PushConstraint(Leaf(value.FromBool(true), value.Bool))
	ok, err := s.Feasible(Leaf(value.FromBool(true), value.Bool))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("AlwaysFeasible should accept every candidate")
	}
}

func TestForkSharesDefsButNotConstraints(t *testing.T) {
	s := NewStore(nil)
	s.PushConstraint(Leaf(value.FromBool(true), value.Bool))
	clone := s.Fork()
	clone.PushConstraint(Leaf(value.FromBool(false), value.Bool))
	if len(s.Constraints()) != 1 {
		t.Fatalf("forking must not mutate the original's constraints")
	}
	if len(clone.Constraints()) != 2 {
		t.Fatalf("expected the fork to carry forward the parent's constraint plus its own")
	}
}

func TestForkedSiblingsMintDisjointIDs(t *testing.T) {
	parent := NewStore(nil)
	left := parent.Fork()
	right := parent.Fork()

	leftAbstract := value.FromAbstract([8]value.SByte(left.FreshAbstractBytes(8)))
	leftResult, _, err := left.AddBinOp(ir.Add, leftAbstract, value.FromUint64(1), value.I32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rightAbstract := value.FromAbstract([8]value.SByte(right.FreshAbstractBytes(8)))
	rightResult, _, err := right.AddBinOp(ir.Add, rightAbstract, value.FromUint64(1), value.I32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	leftID := leftResult.Abstract[0].ID()
	rightID := rightResult.Abstract[0].ID()
	if leftID == rightID {
		t.Fatalf("sibling states minted colliding ids %d", leftID)
	}
	if _, ok := left.defs[leftID]; !ok {
		t.Fatalf("left sibling's definition missing from the shared defs table")
	}
	if _, ok := right.defs[rightID]; !ok {
		t.Fatalf("right sibling's definition missing from the shared defs table")
	}
}

func TestDumpEmptyStore(t *testing.T) {
	s := NewStore(nil)
	if s.Dump() != "(no constraints)" {
		t.Fatalf("got %q", s.Dump())
	}
}
