// Package frame implements the stack frame and single-step evaluator
// described in spec §4.6: a frame holds one IR body's locals and
// program counter, and an Evaluator steps one frame's current
// statement or terminator at a time, reporting back either "continue",
// "fork into these successors", or "halted".
//
// Grounded on ogle/program/server/eval.go's evalNode/evalBinaryOp
// dispatch style (a big switch over a closed sum type, wrapping
// underlying errors with what was being evaluated) and on
// original_source/src/eval_context.rs for the actual per-statement and
// per-terminator semantics (push_stack_frame, assign_discr_and_fields,
// StackPopCleanup).
package frame

import (
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/lvalue"
	"github.com/spacejam/seer/symbolic"
	"github.com/spacejam/seer/value"
)

// CleanupKind tags what happens to the caller when a frame returns,
// mirroring original_source's StackPopCleanup.
type CleanupKind uint8

const (
	// CleanupGoto jumps the caller frame to a fixed block after return.
	CleanupGoto CleanupKind = iota
	// CleanupMarkStatic seals an allocation as static once its
	// initializing frame (a `static FOO: T = ...` initializer) returns.
	CleanupMarkStatic
	// CleanupNone marks the root frame: when it returns, the evaluator
	// state halts instead of resuming a caller.
	CleanupNone
)

// Cleanup is the action StackPopCleanup performs when a frame's Return
// terminator runs.
type Cleanup struct {
	Kind CleanupKind

	// CleanupGoto
	Target ir.BlockID

	// CleanupMarkStatic
	StaticID value.AllocID
	Mutable  bool
}

// Frame is one activation record: the IR body being interpreted, its
// local vector (index 0 is always the return slot), the current
// program point, and what to do with the caller when this frame
// returns.
type Frame struct {
	Body     *ir.Body
	Instance ir.Instance

	Locals []value.Value

	Block ir.BlockID
	Stmt  int

	// Dest is where the return value is written back into the caller;
	// zero value (HasDest false) for the root frame.
	Dest    lvalue.Lvalue
	DestTy  ir.Ty
	HasDest bool

	Cleanup Cleanup

	// index is this frame's position in the Evaluator's stack, needed
	// so lvalue.Lvalue values addressing this frame's locals can be
	// built without the lvalue package importing frame (see
	// lvalue.LocalLvalue's doc comment).
	index int
}

// Limits bounds a single evaluator run, per spec §4.6: a memory cap
// (enforced by memory.Memory itself), a total step count, and a
// maximum call-stack depth.
type Limits struct {
	MemorySize uint64
	StepLimit  uint64
	StackLimit int
}

// DefaultLimits returns the defaults spec §4.6 names: a 100 MiB memory
// cap, a million-step execution budget, and a 100-frame call stack.
func DefaultLimits() Limits {
	return Limits{
		MemorySize: 100 * 1024 * 1024,
		StepLimit:  1_000_000,
		StackLimit: 100,
	}
}

// Successor is one branch target step() reports when a terminator
// forks execution: Target is the block to resume at, and Constraint
// (nil for an unconditional jump) is the path condition the forked
// state must push before continuing. A genuine fork (SwitchInt,
// Assert on a symbolic condition) gives every successor a non-nil
// guard; an unconditional Goto reports no successors at all: it moves
// the frame to its target in place and step() returns a nil slice.
// Halts is set for a successor that does not resume execution at
// Target at all but instead represents this branch of a fork
// immediately ending the state (a symbolic Assert's failing arm): the
// executor should still push Constraint onto the cloned state before
// reporting HaltErr, since the constraint is part of what makes that
// state reachable.
type Successor struct {
	Target     ir.BlockID
	Constraint *symbolic.Expr
	Halts      bool
	HaltErr    error
}
