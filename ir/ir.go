// Package ir defines the typed control-flow-graph vocabulary the
// evaluator interprets. Producing this IR — type checking,
// monomorphization, and CFG construction from source — is explicitly
// out of scope (spec §1); this package only names the shapes a
// front end hands to the evaluator, grounded on the pattern matches
// over mir::StatementKind/TerminatorKind/Rvalue/Lvalue in
// original_source/src/eval_context.rs (renamed mir::Lvalue to Place
// here, since this spec's own, distinct, resolved location type is
// called Lvalue — see package lvalue).
package ir

// DefID names a function, static, or other top-level item in the
// front end's item table. Opaque to the core.
type DefID uint64

// Ty is an opaque handle to a front-end type. The core never inspects
// a Ty directly; every question about a Ty (size, alignment, layout,
// field types) is answered by a layout.TypeSystem.
type Ty struct {
	ID   uint64
	Name string
}

// Substs is a generic substitution list, positional.
type Substs []Ty

// Instance is a fully monomorphized function identity.
type Instance struct {
	Def    DefID
	Substs Substs

	// Intrinsic names the compiler intrinsic this instance resolved to
	// ("size_of", "copy_nonoverlapping", "atomic_load", ...), or "" for
	// an ordinary item or drop-glue instance. Set by front-end
	// resolution the way eval_context.rs's resolve() tags
	// ty::InstanceDef::Intrinsic(def_id) for a RustIntrinsic/
	// PlatformIntrinsic ABI function: such an instance has no MIR body,
	// so frame.execCall must dispatch on this field before ever asking
	// a MIRProvider for one.
	Intrinsic string
}

func (i Instance) String() string { return "instance#" + itoa(uint64(i.Def)) }

// ClosureKind distinguishes how a closure captures its environment,
// needed when resolving a closure value to a callable Instance.
type ClosureKind uint8

const (
	Fn ClosureKind = iota
	FnMut
	FnOnce
)

// Local names a slot in a frame's local vector. Local 0 is always the
// return slot.
type Local uint32

// BlockID names a basic block within a Body.
type BlockID uint32

// BinOp enumerates the binary operators an IR may name.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
	BitXor
	BitAnd
	BitOr
	Shl
	Shr
	Eq
	Lt
	Le
	Ne
	Ge
	Gt
	Offset
)

var binOpNames = [...]string{
	"+", "-", "*", "/", "%", "^", "&", "|", "<<", ">>",
	"==", "<", "<=", "!=", ">=", ">", "offset",
}

func (b BinOp) String() string {
	if int(b) < len(binOpNames) {
		return binOpNames[b]
	}
	return "invalid binop"
}

// UnOp enumerates the unary operators an IR may name.
type UnOp uint8

const (
	Not UnOp = iota
	Neg
)

func (u UnOp) String() string {
	if u == Not {
		return "!"
	}
	return "-"
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
