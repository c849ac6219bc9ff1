package ir

import "github.com/spacejam/seer/value"

// OperandKind tags how an Operand is produced.
type OperandKind uint8

const (
	// OperandCopy reads the place's current value, leaving it intact.
	OperandCopy OperandKind = iota
	// OperandMove reads the place's current value; the place is left
	// logically uninitialized afterward (the evaluator does not need
	// to enforce this — borrow checking already ran in the front end).
	OperandMove
	// OperandConstant is a literal baked into the IR.
	OperandConstant
)

// Operand is an rvalue-position operand: either a place being read or
// a constant.
type Operand struct {
	Kind  OperandKind
	Place Place
	Const value.PrimVal
	Ty    Ty
}

// Copy builds a Copy operand.
func Copy(p Place, ty Ty) Operand { return Operand{Kind: OperandCopy, Place: p, Ty: ty} }

// Move builds a Move operand.
func Move(p Place, ty Ty) Operand { return Operand{Kind: OperandMove, Place: p, Ty: ty} }

// Const builds a Constant operand.
func Const(v value.PrimVal, ty Ty) Operand { return Operand{Kind: OperandConstant, Const: v, Ty: ty} }
