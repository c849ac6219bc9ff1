package value

// PrimValKind names the primitive type a PrimVal is being interpreted
// as — the information eval_context.rs's ty_to_primval_kind extracts
// from a guest type, needed to know how many bytes an op spans and
// whether it is signed, floating point, or a pointer.
type PrimValKind uint8

const (
	I8 PrimValKind = iota
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	F32
	F64
	Bool
	Char
	Ptr
	FnPtr
)

var kindNames = [...]string{
	"i8", "i16", "i32", "i64", "i128",
	"u8", "u16", "u32", "u64", "u128",
	"f32", "f64", "bool", "char", "ptr", "fnptr",
}

func (k PrimValKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// NumBytes returns the width of the kind in bytes.
func (k PrimValKind) NumBytes() uint64 {
	switch k {
	case I8, U8, Bool:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32, Char:
		return 4
	case I64, U64, F64, Ptr, FnPtr:
		return 8
	case I128, U128:
		return 16
	default:
		return 0
	}
}

// IsInt reports whether the kind is an integer (signed or unsigned).
func (k PrimValKind) IsInt() bool {
	switch k {
	case I8, I16, I32, I64, I128, U8, U16, U32, U64, U128:
		return true
	default:
		return false
	}
}

// IsSignedInt reports whether the kind is a signed integer.
func (k PrimValKind) IsSignedInt() bool {
	switch k {
	case I8, I16, I32, I64, I128:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the kind is a floating-point type.
func (k PrimValKind) IsFloat() bool { return k == F32 || k == F64 }

// IsPtr reports whether the kind is a pointer (data or function).
func (k PrimValKind) IsPtr() bool { return k == Ptr || k == FnPtr }

// FromUintSize returns the unsigned integer kind with the given byte width.
func FromUintSize(size uint64) PrimValKind {
	switch size {
	case 1:
		return U8
	case 2:
		return U16
	case 4:
		return U32
	case 8:
		return U64
	case 16:
		return U128
	default:
		return U64
	}
}

// FromIntSize returns the signed integer kind with the given byte width.
func FromIntSize(size uint64) PrimValKind {
	switch size {
	case 1:
		return I8
	case 2:
		return I16
	case 4:
		return I32
	case 8:
		return I64
	case 16:
		return I128
	default:
		return I64
	}
}
