// Package symbolic implements the symbolic byte and constraint store
// described in spec §4.2: fresh abstract identifiers, arithmetic on
// them that either folds to a concrete result or builds a new
// expression node, and the accumulated path condition a
// FeasibilityOracle is consulted against at every symbolic branch.
//
// Grounded on original_source/src/operator.rs's add_binop_constraint /
// add_unop_constraint and the EvalContext.memory.constraints field they
// mutate; there is no Go analog in the teacher repo, since ogle and
// viewcore inspect a live concrete process and never fork on unknown
// data.
package symbolic

import (
	"strings"

	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/value"
)

// Store is the per-execution-state constraint store: a fresh-id
// counter, a definition table recording how each abstract id was
// derived (for Dump and for reconstructing an Expr when that id is
// used again downstream), and the ordered list of constraints pushed
// by symbolic branches taken so far.
type Store struct {
	next        *uint64
	defs        map[uint64]*Expr
	constraints []*Expr
	oracle      FeasibilityOracle
}

// NewStore builds an empty constraint store backed by oracle. Passing
// nil defaults to AlwaysFeasible.
func NewStore(oracle FeasibilityOracle) *Store {
	if oracle == nil {
		oracle = AlwaysFeasible
	}
	return &Store{next: new(uint64), defs: make(map[uint64]*Expr), oracle: oracle}
}

// FreshID returns a new process-wide-unique symbolic identifier. The
// counter is shared across every Store a common ancestor has Fork'd
// off, so sibling states minted after a branch never collide in the
// shared defs table.
func (s *Store) FreshID() uint64 {
	*s.next++
	return *s.next
}

// FreshAbstractBytes returns n independently fresh symbolic bytes —
// the shape memory.AllocateAbstract needs, where every byte of a
// freshly revealed input is its own unknown (spec §4.3).
func (s *Store) FreshAbstractBytes(n int) []value.SByte {
	out := make([]value.SByte, n)
	for i := range out {
		out[i] = value.AbstractByte(s.FreshID())
	}
	return out
}

// exprOf resolves a PrimVal to an Expr: an abstract value defined by a
// prior AddBinOp/AddUnOp call expands to that definition, so Dump shows
// the full expression tree rather than an opaque symbol name.
func (s *Store) exprOf(v value.PrimVal, kind value.PrimValKind) *Expr {
	if v.Kind == value.KindAbstractVal {
		if def, ok := s.defs[v.Abstract[0].ID()]; ok {
			return def
		}
	}
	return Leaf(v, kind)
}

func abstractWord(id uint64) value.PrimVal {
	var bytes [8]value.SByte
	for i := range bytes {
		bytes[i] = value.AbstractByte(id)
	}
	return value.FromAbstract(bytes)
}

// AddBinOp evaluates op(left, right) at the given primitive kind: if
// both operands are concrete it performs the arithmetic directly and
// reports whether the exact result overflowed the width; otherwise it
// allocates a fresh abstract result whose definition links back to the
// operands (spec §4.2's "if both operands are concrete ... otherwise a
// fresh Abstract").
//
// A non-concrete shift amount pushes a feasibility guard
// shift < bit-width of kind, rather than relying on the wraparound a
// native machine shift instruction gives for an out-of-range count
// (original_source/src/operator.rs masks with "n < 256", which is
// wrong for any width narrower than 32 bits).
func (s *Store) AddBinOp(op ir.BinOp, left, right value.PrimVal, kind value.PrimValKind) (value.PrimVal, bool, error) {
	if left.IsConcrete() && right.IsConcrete() {
		lb, _ := left.ToBytes()
		rb, _ := right.ToBytes()
		result, overflow, err := evalConcreteBinOp(op, lb, rb, kind)
		if err != nil {
			return value.PrimVal{}, false, err
		}
		return value.FromBytes(result), overflow, nil
	}

	if (op == ir.Shl || op == ir.Shr) && !right.IsConcrete() {
		guard := &Expr{
			Kind:  ExprBinOp,
			Op:    ir.Lt,
			Left:  s.exprOf(right, kind),
			Right: Leaf(value.FromUint64(kind.NumBytes()*8), kind),
		}
		s.PushConstraint(guard)
	}

	id := s.FreshID()
	s.defs[id] = &Expr{
		Kind:  ExprBinOp,
		Op:    op,
		Left:  s.exprOf(left, kind),
		Right: s.exprOf(right, kind),
	}
	return abstractWord(id), false, nil
}

// AddUnOp is AddBinOp's unary counterpart.
func (s *Store) AddUnOp(op ir.UnOp, v value.PrimVal, kind value.PrimValKind) (value.PrimVal, error) {
	if v.IsConcrete() {
		vb, _ := v.ToBytes()
		result, err := evalConcreteUnOp(op, vb, kind)
		if err != nil {
			return value.PrimVal{}, err
		}
		return value.FromBytes(result), nil
	}

	id := s.FreshID()
	s.defs[id] = &Expr{Kind: ExprUnOp, Un: op, Left: s.exprOf(v, kind)}
	return abstractWord(id), nil
}

// PushConstraint records expr as part of the accumulated path
// condition; every later Feasible call folds it in.
func (s *Store) PushConstraint(expr *Expr) {
	s.constraints = append(s.constraints, expr)
}

// Constraints returns the path condition accumulated so far, oldest
// first. The slice is owned by the caller; callers typically only read
// it (for Dump, or to clone a Store across a fork).
func (s *Store) Constraints() []*Expr {
	out := make([]*Expr, len(s.constraints))
	copy(out, s.constraints)
	return out
}

// Feasible asks the oracle whether candidate can hold simultaneously
// with every constraint already pushed — the call a symbolic branch
// makes once per successor before the executor queues it (spec §4.7).
func (s *Store) Feasible(candidate *Expr) (bool, error) {
	combined := candidate
	for i := len(s.constraints) - 1; i >= 0; i-- {
		combined = &Expr{Kind: ExprAnd, Left: s.constraints[i], Right: combined}
	}
	return s.oracle.Feasible(combined)
}

// Fork returns an independent copy of the store sharing the same
// definition table and id counter (ids stay globally unique across
// forked states) but an independently extensible constraint list — the
// shape a branching executor needs when it clones an execution state
// per successor (spec §4.7). The counter is the same *uint64 as the
// parent's, not a copy of its value, so two siblings minting ids after
// the fork still hand out disjoint ones.
func (s *Store) Fork() *Store {
	clone := &Store{next: s.next, defs: s.defs, oracle: s.oracle}
	clone.constraints = make([]*Expr, len(s.constraints))
	copy(clone.constraints, s.constraints)
	return clone
}

// Dump renders the accumulated path condition, one constraint per
// line, for diagnostics and executor.Outcome's Constraints report.
func (s *Store) Dump() string {
	if len(s.constraints) == 0 {
		return "(no constraints)"
	}
	var b strings.Builder
	for i, c := range s.constraints {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.String())
	}
	return b.String()
}
