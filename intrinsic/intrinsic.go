// Package intrinsic implements the by-name intrinsic dispatch table
// described in spec §4.8: overflowing arithmetic, single-threaded
// atomics, the raw memory primitives (copy/write_bytes/transmute/
// offset), numeric bit-twiddling, and the float transcendentals.
//
// Grounded on original_source/src/terminator/intrinsic.rs's
// call_intrinsic, which matches on the intrinsic's name string rather
// than dispatching through a table of function values; this package
// keeps that same switch-on-name shape so the atomic family's
// ordering-suffixed names (`atomic_load_acq`, `atomic_xadd_relaxed`,
// ...) read the same way they do there, as a single `strings.HasPrefix`
// case rather than one constant per ordering. Intrinsics that need
// type-system queries rather than raw bytes (`size_of`, `align_of_val`,
// `discriminant_value`, ...) are not implemented here: a call naming
// one reaches Call's default case and fails Unimplemented. Only the
// equivalent Rvalue forms are evaluated, on frame.Evaluator
// (evalNullaryOp's SizeOf case, evalDiscriminant).
package intrinsic

import (
	"math"
	"strings"

	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/memory"
	"github.com/spacejam/seer/value"
)

// Generics carries the size/alignment of an intrinsic's type
// parameters, resolved by the caller from ir.Instance.Substs against
// its layout.TypeSystem before calling Call (this package has no
// TypeSystem of its own — see the package doc comment). Size/Align are
// the first type parameter ("T" in `write_bytes::<T>`,
// `offset::<T>`, `atomic_load::<T>`, ...); Size2/Align2 are the
// second, meaningful only for `transmute::<T, U>`'s destination type U.
type Generics struct {
	Size, Align   uint64
	Size2, Align2 uint64
}

// Call dispatches the intrinsic named name against its already
// evaluated argument primitives (and the PrimValKind each was read at,
// needed by operations that fold through the constraint store),
// performing any memory side effects through mem. The returned Value
// is the call's result when it has a destination place to write into
// (a zero-valued, ByValue-zero Value when the intrinsic's result is
// unit).
func Call(name string, mem *memory.Memory, args []value.PrimVal, kinds []value.PrimValKind, g Generics) (value.Value, error) {
	switch {
	case name == "add_with_overflow" || name == "sub_with_overflow" || name == "mul_with_overflow":
		return checkedOp(mem, name, args, kinds)

	case strings.HasPrefix(name, "overflowing_add") || strings.HasPrefix(name, "overflowing_sub") || strings.HasPrefix(name, "overflowing_mul"):
		return wrappingOp(mem, name, args, kinds)

	case strings.HasPrefix(name, "atomic_load"):
		return atomicLoad(mem, args, g)

	case strings.HasPrefix(name, "atomic_store"):
		return value.Value{}, atomicStore(mem, args, g)

	case strings.HasPrefix(name, "atomic_xchg"):
		return atomicXchg(mem, args, g)

	case strings.HasPrefix(name, "atomic_cxchg"):
		return atomicCxchg(mem, args, g)

	case isAtomicRMW(name):
		return atomicRMW(mem, name, args, g)

	case strings.HasPrefix(name, "atomic_fence") || strings.HasPrefix(name, "atomic_singlethreadfence"):
		return value.Value{}, nil

	case name == "copy" || name == "copy_nonoverlapping" || name == "move_val_init":
		return value.Value{}, memCopy(mem, args, g)

	case name == "write_bytes":
		return value.Value{}, writeBytes(mem, args, g)

	case name == "init":
		return value.Value{}, initZero(mem, args, g)

	case name == "uninit":
		return value.Value{}, markUninit(mem, args, g)

	case name == "transmute":
		return value.Value{}, transmute(mem, args, g)

	case name == "offset" || name == "arith_offset":
		return ptrOffset(mem, args, kinds, g)

	case name == "assume":
		return value.Value{}, assume(args)

	case name == "breakpoint":
		return value.Value{}, evalerror.New(evalerror.Unreachable, "breakpoint intrinsic reached")

	case name == "likely" || name == "unlikely":
		return value.FromPrimVal(args[0]), nil

	case name == "forget":
		return value.Value{}, nil

	case strings.HasPrefix(name, "bswap"):
		return bitTwiddle(bswap, args, kinds)
	case strings.HasPrefix(name, "ctlz"):
		return bitTwiddle(ctlz, args, kinds)
	case strings.HasPrefix(name, "cttz"):
		return bitTwiddle(cttz, args, kinds)
	case strings.HasPrefix(name, "ctpop"):
		return bitTwiddle(ctpop, args, kinds)

	case isFloatTranscendental(name):
		return floatOp(name, args, kinds)

	default:
		return value.Value{}, evalerror.New(evalerror.Unimplemented, "intrinsic "+name)
	}
}

func ptrArg(v value.PrimVal) (value.Pointer, error) {
	p, ok := v.ToPointer()
	if !ok {
		return value.Pointer{}, evalerror.New(evalerror.Math, "intrinsic expected a pointer argument")
	}
	return p, nil
}

// checkedOp implements {add,sub,mul}_with_overflow: both the wrapped
// result and whether the exact-width operation overflowed.
func checkedOp(mem *memory.Memory, name string, args []value.PrimVal, kinds []value.PrimValKind) (value.Value, error) {
	op := map[string]ir.BinOp{"add_with_overflow": ir.Add, "sub_with_overflow": ir.Sub, "mul_with_overflow": ir.Mul}[name]
	result, overflow, err := mem.Constraints().AddBinOp(op, args[0], args[1], kinds[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.FromPair(result, value.FromBool(overflow)), nil
}

// wrappingOp implements overflowing_{add,sub,mul}: only the wrapped
// value is reported, the overflow flag is discarded.
func wrappingOp(mem *memory.Memory, name string, args []value.PrimVal, kinds []value.PrimValKind) (value.Value, error) {
	suffix := strings.TrimPrefix(name, "overflowing_")
	op := map[string]ir.BinOp{"add": ir.Add, "sub": ir.Sub, "mul": ir.Mul}[suffix]
	result, _, err := mem.Constraints().AddBinOp(op, args[0], args[1], kinds[0])
	if err != nil {
		return value.Value{}, err
	}
	return value.FromPrimVal(result), nil
}

func atomicLoad(mem *memory.Memory, args []value.PrimVal, g Generics) (value.Value, error) {
	ptr, err := ptrArg(args[0])
	if err != nil {
		return value.Value{}, err
	}
	v, err := mem.ReadPrimVal(ptr, g.Size)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromPrimVal(v), nil
}

func atomicStore(mem *memory.Memory, args []value.PrimVal, g Generics) error {
	ptr, err := ptrArg(args[0])
	if err != nil {
		return err
	}
	return mem.WritePrimVal(ptr, args[1], g.Size)
}

// atomicXchg implements a single-threaded swap: read the old value,
// write the new one, return the old.
func atomicXchg(mem *memory.Memory, args []value.PrimVal, g Generics) (value.Value, error) {
	ptr, err := ptrArg(args[0])
	if err != nil {
		return value.Value{}, err
	}
	old, err := mem.ReadPrimVal(ptr, g.Size)
	if err != nil {
		return value.Value{}, err
	}
	if err := mem.WritePrimVal(ptr, args[1], g.Size); err != nil {
		return value.Value{}, err
	}
	return value.FromPrimVal(old), nil
}

// atomicCxchg implements a single-threaded compare-and-swap: returns
// (old, success_bool).
func atomicCxchg(mem *memory.Memory, args []value.PrimVal, g Generics) (value.Value, error) {
	ptr, err := ptrArg(args[0])
	if err != nil {
		return value.Value{}, err
	}
	old, err := mem.ReadPrimVal(ptr, g.Size)
	if err != nil {
		return value.Value{}, err
	}
	kind := value.FromUintSize(g.Size)
	eq, _, err := mem.Constraints().AddBinOp(ir.Eq, old, args[1], kind)
	if err != nil {
		return value.Value{}, err
	}
	success, ok := eq.ToBytes()
	if ok && success.Uint64() != 0 {
		if err := mem.WritePrimVal(ptr, args[2], g.Size); err != nil {
			return value.Value{}, err
		}
	}
	return value.FromPair(old, eq), nil
}

var atomicRMWOps = map[string]ir.BinOp{
	"or": ir.BitOr, "xor": ir.BitXor, "and": ir.BitAnd, "xadd": ir.Add, "xsub": ir.Sub,
}

func isAtomicRMW(name string) bool {
	for op := range atomicRMWOps {
		if strings.HasPrefix(name, "atomic_"+op) {
			return true
		}
	}
	return false
}

// atomicRMW implements atomic_{or,xor,and,xadd,xsub}: read-modify-write,
// returning the value the memory held before the operation.
func atomicRMW(mem *memory.Memory, name string, args []value.PrimVal, g Generics) (value.Value, error) {
	var op ir.BinOp
	for suffix, o := range atomicRMWOps {
		if strings.HasPrefix(name, "atomic_"+suffix) {
			op = o
			break
		}
	}
	ptr, err := ptrArg(args[0])
	if err != nil {
		return value.Value{}, err
	}
	old, err := mem.ReadPrimVal(ptr, g.Size)
	if err != nil {
		return value.Value{}, err
	}
	kind := value.FromUintSize(g.Size)
	updated, _, err := mem.Constraints().AddBinOp(op, old, args[1], kind)
	if err != nil {
		return value.Value{}, err
	}
	if err := mem.WritePrimVal(ptr, updated, g.Size); err != nil {
		return value.Value{}, err
	}
	return value.FromPrimVal(old), nil
}

// memCopy implements copy/copy_nonoverlapping/move_val_init: n
// elements of the pointee's size/alignment, copied via Memory.Copy
// (already overlap-safe regardless of which of the three intrinsics
// asked).
func memCopy(mem *memory.Memory, args []value.PrimVal, g Generics) error {
	src, err := ptrArg(args[0])
	if err != nil {
		return err
	}
	dst, err := ptrArg(args[1])
	if err != nil {
		return err
	}
	n, ok := args[2].ToBytes()
	if !ok {
		return evalerror.New(evalerror.Math, "copy count must be concrete")
	}
	return mem.Copy(src, dst, n.Uint64()*g.Size, g.Align)
}

func writeBytes(mem *memory.Memory, args []value.PrimVal, g Generics) error {
	dst, err := ptrArg(args[0])
	if err != nil {
		return err
	}
	b, ok := args[1].ToBytes()
	if !ok {
		return evalerror.New(evalerror.Math, "write_bytes fill value must be concrete")
	}
	n, ok := args[2].ToBytes()
	if !ok {
		return evalerror.New(evalerror.Math, "write_bytes count must be concrete")
	}
	return mem.WriteRepeat(dst, uint8(b.Uint64()), n.Uint64()*g.Size)
}

func initZero(mem *memory.Memory, args []value.PrimVal, g Generics) error {
	dst, err := ptrArg(args[0])
	if err != nil {
		return err
	}
	return mem.WriteRepeat(dst, 0, g.Size)
}

func markUninit(mem *memory.Memory, args []value.PrimVal, g Generics) error {
	dst, err := ptrArg(args[0])
	if err != nil {
		return err
	}
	return mem.WritePrimVal(dst, value.Undef(), g.Size)
}

// transmute reinterprets src's bytes as dst's type. If the destination
// type's alignment is lower than the source's (Align2 < Align), the
// allocation dst addresses is marked packed so the narrower alignment
// doesn't trip future access checks (spec §4.8's "must not widen
// alignment" rule). transmute allocates nothing: it copies into dst as
// passed, and frame.execIntrinsicCall passes the pointer operand
// unchanged, so no fresh destination allocation is made first.
func transmute(mem *memory.Memory, args []value.PrimVal, g Generics) error {
	src, err := ptrArg(args[0])
	if err != nil {
		return err
	}
	dst, err := ptrArg(args[1])
	if err != nil {
		return err
	}
	if g.Align2 < g.Align {
		if err := mem.MarkPacked(dst, g.Align2); err != nil {
			return err
		}
	}
	return mem.Copy(src, dst, g.Size, 1)
}

func offsetExpr(mem *memory.Memory, base value.Offset, delta value.PrimVal) (value.Offset, error) {
	var baseVal value.PrimVal
	if base.IsConcrete() {
		baseVal = value.FromUint64(base.Concrete())
	} else {
		baseVal = value.FromAbstract(base.Symbolic())
	}
	sum, _, err := mem.Constraints().AddBinOp(ir.Add, baseVal, delta, value.U64)
	if err != nil {
		return value.Offset{}, err
	}
	if sum.Kind == value.KindBytesVal {
		return value.ConcreteOffset(sum.Bytes.Uint64()), nil
	}
	return value.AbstractOffset(sum.Abstract), nil
}

// ptrOffset implements offset/arith_offset: byte_offset = sizeof(T) *
// n, added to the pointer's own offset. A symbolic n or a symbolic
// base offset folds through the constraint store and yields a pointer
// whose offset is itself symbolic (spec §4.8's last paragraph); bounds
// checking happens later, at the access that actually dereferences it.
func ptrOffset(mem *memory.Memory, args []value.PrimVal, kinds []value.PrimValKind, g Generics) (value.Value, error) {
	ptr, err := ptrArg(args[0])
	if err != nil {
		return value.Value{}, err
	}

	var byteOffset value.PrimVal
	if n, ok := args[1].ToBytes(); ok {
		byteOffset = value.FromUint64(n.Uint64() * g.Size)
	} else {
		scaled, _, err := mem.Constraints().AddBinOp(ir.Mul, args[1], value.FromUint64(g.Size), kinds[1])
		if err != nil {
			return value.Value{}, err
		}
		byteOffset = scaled
	}

	newOffset, err := offsetExpr(mem, ptr.Offset, byteOffset)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromPrimVal(value.FromPointer(value.Pointer{Alloc: ptr.Alloc, Offset: newOffset})), nil
}

func assume(args []value.PrimVal) error {
	b, ok := args[0].ToBytes()
	if ok && b.Uint64() == 0 {
		return evalerror.New(evalerror.AssumptionNotHeld, "")
	}
	return nil
}

func bitTwiddle(f func(uint64, uint64) uint64, args []value.PrimVal, kinds []value.PrimValKind) (value.Value, error) {
	b, ok := args[0].ToBytes()
	if !ok {
		return value.Value{}, evalerror.New(evalerror.Unimplemented, "bit-twiddling intrinsics require a concrete operand")
	}
	width := kinds[0].NumBytes() * 8
	return value.FromPrimVal(value.FromUint64(f(b.Uint64(), width))), nil
}

func bswap(v, width uint64) uint64 {
	n := width / 8
	var out uint64
	for i := uint64(0); i < n; i++ {
		out |= ((v >> (i * 8)) & 0xff) << ((n - 1 - i) * 8)
	}
	return out
}

func ctlz(v, width uint64) uint64 {
	if v == 0 {
		return width
	}
	var n uint64
	for i := int(width) - 1; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

func cttz(v, width uint64) uint64 {
	if v == 0 {
		return width
	}
	var n uint64
	for i := uint64(0); i < width; i++ {
		if v&(1<<i) != 0 {
			break
		}
		n++
	}
	return n
}

func ctpop(v, width uint64) uint64 {
	var n uint64
	for i := uint64(0); i < width; i++ {
		if v&(1<<i) != 0 {
			n++
		}
	}
	return n
}

var floatUnary = map[string]func(float64) float64{
	"sin": math.Sin, "cos": math.Cos, "sqrt": math.Sqrt, "exp": math.Exp,
	"exp2": math.Exp2, "log": math.Log, "log10": math.Log10, "log2": math.Log2,
	"floor": math.Floor, "ceil": math.Ceil, "trunc": math.Trunc, "fabs": math.Abs,
}

func isFloatTranscendental(name string) bool {
	base := strings.TrimSuffix(strings.TrimSuffix(name, "f32"), "f64")
	if _, ok := floatUnary[base]; ok {
		return true
	}
	switch base {
	case "pow", "powi", "fma", "fadd_fast", "fsub_fast", "fmul_fast", "fdiv_fast", "frem_fast":
		return true
	}
	return false
}

// floatOp implements the float transcendental family: the
// transcendental names are suffixed f32/f64 naming the width the
// operands and result share; the unsuffixed f{add,sub,mul,div,rem}_fast
// names take that width from the first operand's kind. Every operand
// must be concrete.
func floatOp(name string, args []value.PrimVal, kinds []value.PrimValKind) (value.Value, error) {
	is64 := strings.HasSuffix(name, "64") || (len(kinds) > 0 && kinds[0] == value.F64)
	base := strings.TrimSuffix(strings.TrimSuffix(name, "f32"), "f64")
	for _, a := range args {
		if _, ok := a.ToBytes(); !ok {
			return value.Value{}, evalerror.New(evalerror.Unimplemented, "float intrinsics require concrete operands")
		}
	}

	toF := func(v value.PrimVal) float64 {
		b, _ := v.ToBytes()
		if is64 {
			return math.Float64frombits(b.Uint64())
		}
		return float64(math.Float32frombits(uint32(b.Uint64())))
	}
	fromF := func(r float64) value.PrimVal {
		if is64 {
			return value.FromUint64(math.Float64bits(r))
		}
		return value.FromUint64(uint64(math.Float32bits(float32(r))))
	}

	if f, ok := floatUnary[base]; ok {
		return value.FromPrimVal(fromF(f(toF(args[0])))), nil
	}

	a := toF(args[0])
	switch base {
	case "pow":
		return value.FromPrimVal(fromF(math.Pow(a, toF(args[1])))), nil
	case "powi":
		n, _ := args[1].ToBytes()
		return value.FromPrimVal(fromF(math.Pow(a, float64(int64(n.Uint64()))))), nil
	case "fma":
		return value.FromPrimVal(fromF(a*toF(args[1]) + toF(args[2]))), nil
	case "fadd_fast":
		return value.FromPrimVal(fromF(a + toF(args[1]))), nil
	case "fsub_fast":
		return value.FromPrimVal(fromF(a - toF(args[1]))), nil
	case "fmul_fast":
		return value.FromPrimVal(fromF(a * toF(args[1]))), nil
	case "fdiv_fast":
		return value.FromPrimVal(fromF(a / toF(args[1]))), nil
	case "frem_fast":
		return value.FromPrimVal(fromF(math.Mod(a, toF(args[1])))), nil
	}
	return value.Value{}, evalerror.New(evalerror.Unimplemented, "float intrinsic "+name)
}
