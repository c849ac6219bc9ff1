package symbolic

// FeasibilityOracle is the external SMT-style backend spec §4.2/§6
// names but explicitly does not implement in the core: "the core does
// not implement it, but must call it at every symbolic branch and
// discard infeasible successors."
type FeasibilityOracle interface {
	// Feasible reports whether expr can be satisfied given every
	// constraint already pushed onto the store that owns it.
	Feasible(expr *Expr) (bool, error)
}

// alwaysFeasible is the trivial oracle used by tests and by cmd/seer
// when no real solver is wired in: every path is explored, matching
// the framing that a real backend is an external collaborator this
// core merely calls.
type alwaysFeasible struct{}

func (alwaysFeasible) Feasible(*Expr) (bool, error) { return true, nil }

// AlwaysFeasible is a FeasibilityOracle that accepts every constraint.
var AlwaysFeasible FeasibilityOracle = alwaysFeasible{}
