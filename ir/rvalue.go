package ir

// RvalueKind enumerates the right-hand-side forms an Assign statement
// may carry (spec §4.6).
type RvalueKind uint8

const (
	RvalueUse RvalueKind = iota
	RvalueBinaryOp
	RvalueCheckedBinaryOp
	RvalueUnaryOp
	RvalueAggregate
	RvalueRepeat
	RvalueLen
	RvalueRef
	RvalueNullaryOp
	RvalueCast
	RvalueDiscriminant
)

// NullOp enumerates the nullary operators (no runtime operand).
type NullOp uint8

const (
	Box NullOp = iota
	SizeOf
)

// CastKind enumerates the cast forms spec §4.6 names.
type CastKind uint8

const (
	CastUnsize CastKind = iota
	CastMisc
	CastReifyFnPointer
	CastUnsafeFnPointer
	CastClosureFnPointer
)

// AggregateKind enumerates the shapes an Aggregate rvalue builds.
type AggregateKind uint8

const (
	AggregateArray AggregateKind = iota
	AggregateTuple
	AggregateAdt
)

// Rvalue is the right-hand side of an Assign statement.
type Rvalue struct {
	Kind RvalueKind

	// RvalueUse, RvalueUnaryOp, RvalueCast, RvalueRepeat (the value
	// operand)
	Operand Operand

	// RvalueBinaryOp, RvalueCheckedBinaryOp
	BinOp       BinOp
	Left, Right Operand

	// RvalueUnaryOp
	UnOp UnOp

	// RvalueAggregate
	Aggregate AggregateKind
	AdtTy     Ty
	Variant   int
	Fields    []Operand

	// RvalueRepeat
	Count uint64

	// RvalueLen, RvalueRef, RvalueDiscriminant all name a place.
	Place Place

	// RvalueRef
	Mutable bool

	// RvalueNullaryOp
	NullOp NullOp
	// RvalueNullaryOp(SizeOf), RvalueCast (destination type)
	Ty Ty

	// RvalueCast
	Cast CastKind
	// RvalueCast(Unsize) to a trait object: the trait being coerced to.
	// Zero value for every other cast/unsize target.
	TraitDef DefID
}
