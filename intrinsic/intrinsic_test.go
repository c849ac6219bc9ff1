package intrinsic

import (
	"math"
	"testing"

	"github.com/spacejam/seer/arch"
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/memory"
	"github.com/spacejam/seer/symbolic"
	"github.com/spacejam/seer/value"
)

func newTestMemory() *memory.Memory {
	return memory.New(&arch.AMD64, symbolic.NewStore(symbolic.AlwaysFeasible), 0)
}

func TestAddWithOverflowReportsWrapAndFlag(t *testing.T) {
	mem := newTestMemory()
	args := []value.PrimVal{value.FromUint64(0xff), value.FromUint64(1)}
	kinds := []value.PrimValKind{value.U8, value.U8}
	got, err := Call("add_with_overflow", mem, args, kinds, Generics{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Kind != value.ByPair {
		t.Fatalf("expected a (result, overflow) pair, got %v", got.Kind)
	}
	sum, _ := got.Pair[0].ToBytes()
	if sum.Uint64() != 0 {
		t.Fatalf("got sum %d, want wrapped 0", sum.Uint64())
	}
	flag, _ := got.Pair[1].ToBytes()
	if flag.Uint64() != 1 {
		t.Fatalf("expected the overflow flag set")
	}
}

func TestOverflowingSubDiscardsFlag(t *testing.T) {
	mem := newTestMemory()
	args := []value.PrimVal{value.FromUint64(0), value.FromUint64(1)}
	kinds := []value.PrimValKind{value.U8, value.U8}
	got, err := Call("overflowing_sub", mem, args, kinds, Generics{})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Kind != value.ByValue {
		t.Fatalf("expected a single wrapped result, got %v", got.Kind)
	}
	v, _ := got.Val.ToBytes()
	if v.Uint64() != 0xff {
		t.Fatalf("got %#x, want wrapped 0xff", v.Uint64())
	}
}

func TestAtomicStoreThenLoadRoundTrips(t *testing.T) {
	mem := newTestMemory()
	ptr, _ := mem.Allocate(8, 8)
	g := Generics{Size: 8}
	if _, err := Call("atomic_store", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(99)}, nil, g); err != nil {
		t.Fatalf("atomic_store: %v", err)
	}
	got, err := Call("atomic_load", mem, []value.PrimVal{value.FromPointer(ptr)}, nil, g)
	if err != nil {
		t.Fatalf("atomic_load: %v", err)
	}
	v, _ := got.Val.ToBytes()
	if v.Uint64() != 99 {
		t.Fatalf("got %d, want 99", v.Uint64())
	}
}

func TestAtomicXchgReturnsOldValue(t *testing.T) {
	mem := newTestMemory()
	ptr, _ := mem.Allocate(8, 8)
	g := Generics{Size: 8}
	Call("atomic_store", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(7)}, nil, g)

	got, err := Call("atomic_xchg", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(8)}, nil, g)
	if err != nil {
		t.Fatalf("atomic_xchg: %v", err)
	}
	old, _ := got.Val.ToBytes()
	if old.Uint64() != 7 {
		t.Fatalf("got old value %d, want 7", old.Uint64())
	}
	after, _ := Call("atomic_load", mem, []value.PrimVal{value.FromPointer(ptr)}, nil, g)
	v, _ := after.Val.ToBytes()
	if v.Uint64() != 8 {
		t.Fatalf("got %d stored, want 8", v.Uint64())
	}
}

func TestAtomicCxchgSucceedsOnMatch(t *testing.T) {
	mem := newTestMemory()
	ptr, _ := mem.Allocate(8, 8)
	g := Generics{Size: 8}
	Call("atomic_store", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(5)}, nil, g)

	got, err := Call("atomic_cxchg", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(5), value.FromUint64(6)}, nil, g)
	if err != nil {
		t.Fatalf("atomic_cxchg: %v", err)
	}
	success, _ := got.Pair[1].ToBytes()
	if success.Uint64() != 1 {
		t.Fatalf("expected compare-exchange to succeed")
	}
	after, _ := Call("atomic_load", mem, []value.PrimVal{value.FromPointer(ptr)}, nil, g)
	v, _ := after.Val.ToBytes()
	if v.Uint64() != 6 {
		t.Fatalf("got %d, want the swapped value 6", v.Uint64())
	}
}

func TestAtomicCxchgFailsOnMismatch(t *testing.T) {
	mem := newTestMemory()
	ptr, _ := mem.Allocate(8, 8)
	g := Generics{Size: 8}
	Call("atomic_store", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(5)}, nil, g)

	got, _ := Call("atomic_cxchg", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(99), value.FromUint64(6)}, nil, g)
	success, _ := got.Pair[1].ToBytes()
	if success.Uint64() != 0 {
		t.Fatalf("expected compare-exchange to fail on mismatch")
	}
	after, _ := Call("atomic_load", mem, []value.PrimVal{value.FromPointer(ptr)}, nil, g)
	v, _ := after.Val.ToBytes()
	if v.Uint64() != 5 {
		t.Fatalf("got %d, expected the store to be left untouched", v.Uint64())
	}
}

func TestAtomicXaddAccumulates(t *testing.T) {
	mem := newTestMemory()
	ptr, _ := mem.Allocate(8, 8)
	g := Generics{Size: 8}
	Call("atomic_store", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(10)}, nil, g)

	Call("atomic_xadd", mem, []value.PrimVal{value.FromPointer(ptr), value.FromUint64(5)}, nil, g)
	after, _ := Call("atomic_load", mem, []value.PrimVal{value.FromPointer(ptr)}, nil, g)
	v, _ := after.Val.ToBytes()
	if v.Uint64() != 15 {
		t.Fatalf("got %d, want 15", v.Uint64())
	}
}

func TestCopyNonoverlappingDuplicatesBytes(t *testing.T) {
	mem := newTestMemory()
	src, _ := mem.Allocate(4, 4)
	mem.WritePrimVal(src, value.FromUint64(42), 4)
	dst, _ := mem.Allocate(4, 4)

	g := Generics{Size: 4, Align: 4}
	_, err := Call("copy_nonoverlapping", mem, []value.PrimVal{value.FromPointer(src), value.FromPointer(dst), value.FromUint64(1)}, nil, g)
	if err != nil {
		t.Fatalf("copy_nonoverlapping: %v", err)
	}
	got, err := mem.ReadUint(dst, 4)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestWriteBytesFillsRange(t *testing.T) {
	mem := newTestMemory()
	dst, _ := mem.Allocate(4, 1)
	g := Generics{Size: 1}
	_, err := Call("write_bytes", mem, []value.PrimVal{value.FromPointer(dst), value.FromUint64(0xab), value.FromUint64(4)}, nil, g)
	if err != nil {
		t.Fatalf("write_bytes: %v", err)
	}
	got, err := mem.ReadUint(dst, 4)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != 0xabababab {
		t.Fatalf("got %#x, want 0xabababab", got)
	}
}

func TestUninitThenReadFails(t *testing.T) {
	mem := newTestMemory()
	dst, _ := mem.Allocate(4, 4)
	mem.WritePrimVal(dst, value.FromUint64(1), 4)
	g := Generics{Size: 4}
	if _, err := Call("uninit", mem, []value.PrimVal{value.FromPointer(dst)}, nil, g); err != nil {
		t.Fatalf("uninit: %v", err)
	}
	if _, err := mem.ReadUint(dst, 4); !evalerror.Is(err, evalerror.ReadUndefBytes) {
		t.Fatalf("got %v, want ReadUndefBytes after uninit", err)
	}
}

func TestTransmuteNarrowingAlignmentMarksPacked(t *testing.T) {
	mem := newTestMemory()
	src, _ := mem.Allocate(4, 1)
	mem.WritePrimVal(src, value.FromUint64(7), 4)
	dst, _ := mem.Allocate(4, 4)

	g := Generics{Size: 4, Align: 4, Align2: 1}
	if _, err := Call("transmute", mem, []value.PrimVal{value.FromPointer(src), value.FromPointer(dst)}, nil, g); err != nil {
		t.Fatalf("transmute: %v", err)
	}
	got, err := mem.ReadUint(dst, 4)
	if err != nil {
		t.Fatalf("read after transmute: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestOffsetScalesByElementSize(t *testing.T) {
	mem := newTestMemory()
	alloc, _ := mem.Allocate(32, 4)
	g := Generics{Size: 4}
	got, err := Call("offset", mem, []value.PrimVal{value.FromPointer(alloc), value.FromUint64(3)}, []value.PrimValKind{value.Ptr, value.U64}, g)
	if err != nil {
		t.Fatalf("offset: %v", err)
	}
	ptr, ok := got.Val.ToPointer()
	if !ok {
		t.Fatalf("expected a pointer result")
	}
	if !ptr.Offset.IsConcrete() || ptr.Offset.Concrete() != 12 {
		t.Fatalf("got offset %v, want 12 (3 * size_of 4)", ptr.Offset)
	}
}

func TestAssumeFalseReportsError(t *testing.T) {
	if err := assume([]value.PrimVal{value.FromBool(false)}); !evalerror.Is(err, evalerror.AssumptionNotHeld) {
		t.Fatalf("got %v, want AssumptionNotHeld", err)
	}
	if err := assume([]value.PrimVal{value.FromBool(true)}); err != nil {
		t.Fatalf("assume(true): %v", err)
	}
}

func TestBswapReversesBytes(t *testing.T) {
	mem := newTestMemory()
	got, err := Call("bswap32", mem, []value.PrimVal{value.FromUint64(0x01020304)}, []value.PrimValKind{value.U32}, Generics{})
	if err != nil {
		t.Fatalf("bswap32: %v", err)
	}
	v, _ := got.Val.ToBytes()
	if v.Uint64() != 0x04030201 {
		t.Fatalf("got %#x, want 0x04030201", v.Uint64())
	}
}

func TestCtpopCountsSetBits(t *testing.T) {
	mem := newTestMemory()
	got, err := Call("ctpop32", mem, []value.PrimVal{value.FromUint64(0b1011)}, []value.PrimValKind{value.U32}, Generics{})
	if err != nil {
		t.Fatalf("ctpop32: %v", err)
	}
	v, _ := got.Val.ToBytes()
	if v.Uint64() != 3 {
		t.Fatalf("got %d, want 3", v.Uint64())
	}
}

func TestCtlzAllZeroReturnsWidth(t *testing.T) {
	mem := newTestMemory()
	got, err := Call("ctlz8", mem, []value.PrimVal{value.FromUint64(0)}, []value.PrimValKind{value.U8}, Generics{})
	if err != nil {
		t.Fatalf("ctlz8: %v", err)
	}
	v, _ := got.Val.ToBytes()
	if v.Uint64() != 8 {
		t.Fatalf("got %d, want 8", v.Uint64())
	}
}

func TestSqrtf64MatchesMath(t *testing.T) {
	mem := newTestMemory()
	bits := math.Float64bits(2.0)
	got, err := Call("sqrtf64", mem, []value.PrimVal{value.FromUint64(bits)}, []value.PrimValKind{value.F64}, Generics{})
	if err != nil {
		t.Fatalf("sqrtf64: %v", err)
	}
	v, _ := got.Val.ToBytes()
	result := math.Float64frombits(v.Uint64())
	if math.Abs(result-math.Sqrt2) > 1e-12 {
		t.Fatalf("got %v, want sqrt(2)", result)
	}
}

func TestUnknownIntrinsicReportsUnimplemented(t *testing.T) {
	mem := newTestMemory()
	if _, err := Call("some_future_intrinsic", mem, nil, nil, Generics{}); !evalerror.Is(err, evalerror.Unimplemented) {
		t.Fatalf("got %v, want Unimplemented", err)
	}
}
