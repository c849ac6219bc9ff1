package symbolic

import (
	"math"
	"math/big"

	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/value"
)

var errDivByZero = evalerror.New(evalerror.Math, "divide by zero")
var errBadOp = evalerror.New(evalerror.Math, "operator not valid for this primitive kind")

// evalConcreteBinOp computes op(l, r) at the given width/signedness,
// reporting whether the mathematically exact result did not fit back
// into that width — the "checked" flag RvalueCheckedBinaryOp reads
// (spec §4.6, grounded on original_source/src/operator.rs's
// int_binary_op using checked arithmetic per width rather than Go's
// fixed-width wraparound).
func evalConcreteBinOp(op ir.BinOp, l, r value.Uint128, kind value.PrimValKind) (value.Uint128, bool, error) {
	if kind.IsFloat() {
		return evalFloatBinOp(op, l, r, kind)
	}
	bits := kind.NumBytes() * 8
	signed := kind.IsSignedInt()

	lb := toBig(l, bits, signed)
	rb := toBig(r, bits, signed)

	switch op {
	case ir.Eq, ir.Ne, ir.Lt, ir.Le, ir.Ge, ir.Gt:
		return compareBig(op, lb, rb), false, nil
	}

	var raw big.Int
	shiftOverflow := false
	isShift := false
	switch op {
	case ir.Add:
		raw.Add(lb, rb)
	case ir.Sub:
		raw.Sub(lb, rb)
	case ir.Mul:
		raw.Mul(lb, rb)
	case ir.Div:
		if rb.Sign() == 0 {
			return value.Uint128{}, false, errDivByZero
		}
		raw.Quo(lb, rb)
	case ir.Rem:
		if rb.Sign() == 0 {
			return value.Uint128{}, false, errDivByZero
		}
		raw.Rem(lb, rb)
	case ir.BitAnd:
		raw.And(lb, rb)
	case ir.BitOr:
		raw.Or(lb, rb)
	case ir.BitXor:
		raw.Xor(lb, rb)
	case ir.Shl:
		isShift = true
		var amt uint
		amt, shiftOverflow = clampShift(rb, bits)
		raw.Lsh(lb, amt)
	case ir.Shr:
		isShift = true
		var amt uint
		amt, shiftOverflow = clampShift(rb, bits)
		if signed {
			raw.Rsh(lb, amt)
		} else {
			raw.Rsh(toBig(l, bits, false), amt)
		}
	default:
		return value.Uint128{}, false, errBadOp
	}

	wrapped, overflow := wrapBig(&raw, bits, signed)
	if isShift {
		overflow = shiftOverflow
	}
	return fromBig(wrapped, bits), overflow, nil
}

// evalConcreteUnOp computes op(v) at the given width/signedness.
func evalConcreteUnOp(op ir.UnOp, v value.Uint128, kind value.PrimValKind) (value.Uint128, error) {
	if kind.IsFloat() {
		return evalFloatUnOp(op, v, kind)
	}
	if kind == value.Bool && op == ir.Not {
		if v.IsZero() {
			return value.NewUint128(1), nil
		}
		return value.Uint128{}, nil
	}

	bits := kind.NumBytes() * 8
	signed := kind.IsSignedInt()
	vb := toBig(v, bits, signed)

	var raw big.Int
	switch op {
	case ir.Not:
		raw.Not(vb)
	case ir.Neg:
		raw.Neg(vb)
	default:
		return value.Uint128{}, errBadOp
	}
	wrapped, _ := wrapBig(&raw, bits, signed)
	return fromBig(wrapped, bits), nil
}

func evalFloatBinOp(op ir.BinOp, l, r value.Uint128, kind value.PrimValKind) (value.Uint128, bool, error) {
	lf, rf := toFloat(l, kind), toFloat(r, kind)
	switch op {
	case ir.Eq:
		return boolBits(lf == rf), false, nil
	case ir.Ne:
		return boolBits(lf != rf), false, nil
	case ir.Lt:
		return boolBits(lf < rf), false, nil
	case ir.Le:
		return boolBits(lf <= rf), false, nil
	case ir.Ge:
		return boolBits(lf >= rf), false, nil
	case ir.Gt:
		return boolBits(lf > rf), false, nil
	}
	var result float64
	switch op {
	case ir.Add:
		result = lf + rf
	case ir.Sub:
		result = lf - rf
	case ir.Mul:
		result = lf * rf
	case ir.Div:
		result = lf / rf
	case ir.Rem:
		result = math.Mod(lf, rf)
	default:
		return value.Uint128{}, false, errBadOp
	}
	return fromFloat(result, kind), false, nil
}

func evalFloatUnOp(op ir.UnOp, v value.Uint128, kind value.PrimValKind) (value.Uint128, error) {
	if op != ir.Neg {
		return value.Uint128{}, errBadOp
	}
	return fromFloat(-toFloat(v, kind), kind), nil
}

func boolBits(b bool) value.Uint128 {
	if b {
		return value.NewUint128(1)
	}
	return value.Uint128{}
}

func toFloat(v value.Uint128, kind value.PrimValKind) float64 {
	if kind == value.F32 {
		return float64(math.Float32frombits(uint32(v.Lo)))
	}
	return math.Float64frombits(v.Lo)
}

func fromFloat(f float64, kind value.PrimValKind) value.Uint128 {
	if kind == value.F32 {
		return value.NewUint128(uint64(math.Float32bits(float32(f))))
	}
	return value.NewUint128(math.Float64bits(f))
}

func toBig(v value.Uint128, bits uint64, signed bool) *big.Int {
	b := new(big.Int)
	if bits > 64 {
		hi := new(big.Int).SetUint64(v.Hi)
		hi.Lsh(hi, 64)
		lo := new(big.Int).SetUint64(v.Lo)
		b.Or(hi, lo)
	} else {
		mask := uint64(1)<<uint(bits) - 1
		if bits == 64 {
			mask = ^uint64(0)
		}
		b.SetUint64(v.Lo & mask)
	}
	if signed {
		half := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		if b.Cmp(half) >= 0 {
			full := new(big.Int).Lsh(big.NewInt(1), uint(bits))
			b.Sub(b, full)
		}
	}
	return b
}

func fromBig(b *big.Int, bits uint64) value.Uint128 {
	m := new(big.Int).Mod(b, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	if m.Sign() < 0 {
		m.Add(m, new(big.Int).Lsh(big.NewInt(1), uint(bits)))
	}
	bytes := m.Bytes()
	var lo, hi uint64
	for i, by := range bytes {
		pos := len(bytes) - 1 - i
		if pos < 8 {
			lo |= uint64(by) << uint(pos*8)
		} else if pos < 16 {
			hi |= uint64(by) << uint((pos-8)*8)
		}
	}
	return value.Uint128{Lo: lo, Hi: hi}
}

// wrapBig truncates raw to bits, returning the truncated value and
// whether truncation changed it (an overflow, per the checked-op
// semantics RvalueCheckedBinaryOp needs).
func wrapBig(raw *big.Int, bits uint64, signed bool) (*big.Int, bool) {
	full := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	wrapped := new(big.Int).Mod(raw, full)
	if wrapped.Sign() < 0 {
		wrapped.Add(wrapped, full)
	}
	canonical := new(big.Int).Set(wrapped)
	if signed {
		half := new(big.Int).Rsh(full, 1)
		if canonical.Cmp(half) >= 0 {
			canonical.Sub(canonical, full)
		}
	}
	overflow := canonical.Cmp(raw) != 0
	return wrapped, overflow
}

// clampShift masks a concrete shift amount to the operand width, the
// same way Rust's overflowing_shl/overflowing_shr treat the count
// (original_source/src/operator.rs), and reports whether the original
// amount was out of range — a shift count >= bits (or negative) always
// overflows, even when the masked shift happens to reproduce the same
// bits (e.g. 0u8 << 9 is still a reported overflow).
func clampShift(amt *big.Int, bits uint64) (uint, bool) {
	if amt.Sign() < 0 {
		return 0, true
	}
	full := new(big.Int).SetUint64(bits)
	masked := new(big.Int).Mod(amt, full)
	return uint(masked.Uint64()), amt.Cmp(full) >= 0
}

func compareBig(op ir.BinOp, l, r *big.Int) value.Uint128 {
	c := l.Cmp(r)
	var result bool
	switch op {
	case ir.Eq:
		result = c == 0
	case ir.Ne:
		result = c != 0
	case ir.Lt:
		result = c < 0
	case ir.Le:
		result = c <= 0
	case ir.Ge:
		result = c >= 0
	case ir.Gt:
		result = c > 0
	}
	return boolBits(result)
}
