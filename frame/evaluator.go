package frame

import (
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/layout"
	"github.com/spacejam/seer/lvalue"
	"github.com/spacejam/seer/memory"
	"github.com/spacejam/seer/value"
)

// Evaluator is one execution state: a memory manager (carrying its own
// constraint store, per package memory's doc comment), the injected
// type system and MIR provider, a table of resolved global slots, and
// a call stack. The executor package clones an Evaluator per fork.
type Evaluator struct {
	Mem *memory.Memory
	TS  layout.TypeSystem
	MIR layout.MIRProvider

	Globals map[lvalue.GlobalID]value.Pointer

	Stack  []*Frame
	Limits Limits
	Steps  uint64
}

// New builds an evaluator with an empty call stack.
func New(mem *memory.Memory, ts layout.TypeSystem, mir layout.MIRProvider, limits Limits) *Evaluator {
	return &Evaluator{
		Mem:     mem,
		TS:      ts,
		MIR:     mir,
		Globals: make(map[lvalue.GlobalID]value.Pointer),
		Limits:  limits,
	}
}

// Clone returns an independent copy of the evaluator for the branching
// executor's fork step: the memory manager is deep-copied and its
// embedded constraint store forked (Store.Fork: an independent
// constraint list over a shared definition table and id counter)
// (spec §9's "cloneable evaluator states"), the
// stack is deep-copied frame by frame, and the type system/MIR
// provider/globals table are shared (they are read-only front-end
// state, not per-execution-state data).
func (ev *Evaluator) Clone() *Evaluator {
	clone := &Evaluator{
		Mem:     ev.Mem.Clone(),
		TS:      ev.TS,
		MIR:     ev.MIR,
		Globals: ev.Globals,
		Limits:  ev.Limits,
		Steps:   ev.Steps,
	}
	clone.Stack = make([]*Frame, len(ev.Stack))
	for i, f := range ev.Stack {
		cf := *f
		cf.Locals = make([]value.Value, len(f.Locals))
		copy(cf.Locals, f.Locals)
		clone.Stack[i] = &cf
	}
	return clone
}

// top returns the currently executing frame.
func (ev *Evaluator) top() *Frame {
	return ev.Stack[len(ev.Stack)-1]
}

// PushFrame starts a new activation for instance/body, binding args to
// the first len(args) locals after the return slot (local 0), and
// records how the caller should be resumed when it returns. Enforces
// the stack-depth limit (spec §4.6).
func (ev *Evaluator) PushFrame(instance ir.Instance, body *ir.Body, args []value.Value, dest lvalue.Lvalue, destTy ir.Ty, hasDest bool, cleanup Cleanup) error {
	if len(ev.Stack) >= ev.Limits.StackLimit {
		return evalerror.New(evalerror.StackFrameLimitReached, "")
	}
	locals := make([]value.Value, len(body.LocalDecls))
	for i, a := range args {
		locals[1+i] = a
	}
	f := &Frame{
		Body:     body,
		Instance: instance,
		Locals:   locals,
		Dest:     dest,
		DestTy:   destTy,
		HasDest:  hasDest,
		Cleanup:  cleanup,
		index:    len(ev.Stack),
	}
	ev.Stack = append(ev.Stack, f)
	return nil
}

// Done reports whether every frame has returned: the evaluator state
// halted cleanly.
func (ev *Evaluator) Done() bool { return len(ev.Stack) == 0 }

// GotoBlock redirects the current frame's program counter to target,
// the branching executor's way of steering a freshly cloned state onto
// one fork's arm after pushing that arm's Constraint (spec §4.7).
func (ev *Evaluator) GotoBlock(target ir.BlockID) {
	f := ev.top()
	f.Block = target
	f.Stmt = 0
}

// Step executes the current frame's current statement, or — if the
// statement index has run off the end of the block — its terminator.
// It reports (true, nil, nil) to continue normally, (true, successors,
// nil) when a terminator forks execution into two or more successors,
// and (false, nil, err) when the state halts (err is nil for a clean
// return of the root frame, non-nil for a runtime failure or an
// explicit Panic/Unreachable), per spec §4.7's three-way step()
// contract.
func (ev *Evaluator) Step() (bool, []Successor, error) {
	if ev.Done() {
		return false, nil, nil
	}
	ev.Steps++
	if ev.Steps > ev.Limits.StepLimit {
		return false, nil, evalerror.New(evalerror.ExecutionTimeLimitReached, "")
	}

	f := ev.top()
	block := &f.Body.Blocks[f.Block]
	if f.Stmt < len(block.Statements) {
		stmt := block.Statements[f.Stmt]
		f.Stmt++
		if stmt.Kind == ir.StmtAssign {
			if err := ev.execAssign(f, stmt); err != nil {
				return false, nil, err
			}
		}
		return true, nil, nil
	}

	return ev.execTerminator(f, block.Terminator)
}
