package symbolic

import (
	"fmt"

	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/value"
)

// ExprKind tags how an Expr node is built.
type ExprKind uint8

const (
	// ExprValue wraps a PrimVal directly — a constant, or an abstract
	// operand with no recorded definition (e.g. a symbolic input byte
	// allocated by memory.AllocateAbstract, not by a Store op).
	ExprValue ExprKind = iota
	// ExprBinOp combines two sub-expressions with an IR binary operator.
	ExprBinOp
	// ExprUnOp applies an IR unary operator to a sub-expression.
	ExprUnOp
	// ExprAnd conjoins two sub-expressions; used internally to fold the
	// accumulated path condition together with a candidate branch guard
	// before handing the pair to a FeasibilityOracle.
	ExprAnd
)

// Expr is a symbolic expression tree: the conjunction of path
// constraints and the arithmetic expressions defining abstract values,
// handed opaquely to a FeasibilityOracle (spec §4.2, §6). The core
// never interprets an Expr's truth value itself.
type Expr struct {
	Kind ExprKind

	Val     value.PrimVal
	ValKind value.PrimValKind

	Op ir.BinOp
	Un ir.UnOp

	Left, Right *Expr
}

// Leaf wraps a PrimVal operand as an expression.
func Leaf(v value.PrimVal, kind value.PrimValKind) *Expr {
	return &Expr{Kind: ExprValue, Val: v, ValKind: kind}
}

func (e *Expr) String() string {
	if e == nil {
		return "<true>"
	}
	switch e.Kind {
	case ExprValue:
		return e.Val.String()
	case ExprBinOp:
		return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
	case ExprUnOp:
		return fmt.Sprintf("(%s %s)", e.Un, e.Left)
	case ExprAnd:
		return fmt.Sprintf("(%s && %s)", e.Left, e.Right)
	default:
		return "<invalid expr>"
	}
}
