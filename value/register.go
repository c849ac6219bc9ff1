package value

// RegKind tags how a register-level Value is represented.
type RegKind uint8

const (
	// ByValue is a single primitive that fits in a register.
	ByValue RegKind = iota
	// ByPair is two primitives: fat pointers, two-field tuples.
	ByPair
	// ByRef means the value lives in an allocation; the register
	// holds only the address.
	ByRef
)

// Value is the register-level representation of a guest local: it is
// always one of ByValue, ByPair, or ByRef (spec §3). The runtime is
// free to promote a ByValue/ByPair to ByRef ("force allocation") when
// its address is taken or its type is an aggregate.
type Value struct {
	Kind RegKind
	Val  PrimVal    // valid iff Kind == ByValue
	Pair [2]PrimVal // valid iff Kind == ByPair
	Ref  Pointer    // valid iff Kind == ByRef
}

// FromPrimVal wraps a single primitive as a ByValue register value.
func FromPrimVal(v PrimVal) Value { return Value{Kind: ByValue, Val: v} }

// FromPair wraps two primitives as a ByPair register value.
func FromPair(a, b PrimVal) Value { return Value{Kind: ByPair, Pair: [2]PrimVal{a, b}} }

// FromRef wraps a pointer as a ByRef register value.
func FromRef(p Pointer) Value { return Value{Kind: ByRef, Ref: p} }

func (v Value) String() string {
	switch v.Kind {
	case ByValue:
		return v.Val.String()
	case ByPair:
		return "(" + v.Pair[0].String() + ", " + v.Pair[1].String() + ")"
	case ByRef:
		return "&" + v.Ref.String()
	default:
		return "<invalid value>"
	}
}
