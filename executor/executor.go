// Package executor implements the branching work-queue driver
// described in spec §4.7: a FIFO of independent Evaluator states, each
// stepped in turn, forked into one clone per Successor a terminator
// reports, and drained until every reachable path has halted.
//
// Grounded on original_source/src/executor.rs's Executor{queue}/
// eval_main almost line for line: a VecDeque of EvalContext becomes a
// Go slice used as a FIFO, push_eval_context/pop_eval_context keep
// their names, and the three-way match on ecx.step()'s result becomes
// the three-way switch in Run.
package executor

import (
	"github.com/spacejam/seer/evalerror"
	"github.com/spacejam/seer/frame"
	"github.com/spacejam/seer/ir"
	"github.com/spacejam/seer/layout"
	"github.com/spacejam/seer/lvalue"
	"github.com/spacejam/seer/value"
)

// Outcome is one queued state's terminal report: it either returned
// cleanly out of the root frame (Err nil) or halted on an error
// (a Panic, Unreachable, or any propagated evaluation failure),
// together with the path constraints that made that state reachable
// and how many heap allocations it never freed.
type Outcome struct {
	Err         error
	Constraints string
	Leaks       int
}

// Executor is a FIFO queue of independent Evaluator states.
type Executor struct {
	queue []*frame.Evaluator
}

// New returns an empty executor.
func New() *Executor {
	return &Executor{}
}

// PushEvalContext enqueues ev for stepping.
func (ex *Executor) PushEvalContext(ev *frame.Evaluator) {
	ex.queue = append(ex.queue, ev)
}

// popEvalContext dequeues the oldest state, giving the FIFO a
// breadth-first exploration order over the symbolic tree (spec §4.7;
// the specification does not mandate this order, only that every
// feasible successor is visited).
func (ex *Executor) popEvalContext() (*frame.Evaluator, bool) {
	if len(ex.queue) == 0 {
		return nil, false
	}
	ev := ex.queue[0]
	ex.queue = ex.queue[1:]
	return ev, true
}

// PopEvalContext exports popEvalContext for callers that want to drive
// the work queue one state at a time instead of running it to
// completion with Run — cmd/seer's "step" and "repl" subcommands pop a
// state, single-step it themselves, and decide what to do with any
// forked successors interactively.
func (ex *Executor) PopEvalContext() (*frame.Evaluator, bool) {
	return ex.popEvalContext()
}

// Len reports how many states are currently queued.
func (ex *Executor) Len() int { return len(ex.queue) }

// NewMain is the entry point cmd/seer drives: it loads instance's MIR,
// checks its signature, pushes the first stack frame (binding an
// abstract `&[u8]` argument when the entry takes one), and returns an
// Executor with the resulting root state queued; the caller then drives
// it with Run or pops states itself.
func NewMain(ev *frame.Evaluator, ts layout.TypeSystem, mirp layout.MIRProvider, instance ir.Instance) (*Executor, error) {
	body, err := mirp.MIRFor(instance)
	if err != nil {
		return nil, err
	}
	if body.ArgCount > 1 {
		return nil, evalerror.New(evalerror.Unimplemented, "entry function must have signature fn(&[u8]) or fn()")
	}
	if size, ok := ts.Size(body.ReturnTy); ok && size != 0 {
		return nil, evalerror.New(evalerror.Unimplemented, "entry function must return ()")
	}

	cleanup := frame.Cleanup{Kind: frame.CleanupNone}
	var rootDest lvalue.Lvalue
	if body.ArgCount == 0 {
		if err := ev.PushFrame(instance, body, nil, rootDest, ir.Ty{}, false, cleanup); err != nil {
			return nil, err
		}
	} else {
		const inputLen = 21
		ptr, err := ev.Mem.AllocateAbstract(inputLen, 8)
		if err != nil {
			return nil, err
		}
		arg := value.FromPair(value.FromPointer(ptr), value.FromUint64(inputLen))
		if err := ev.PushFrame(instance, body, []value.Value{arg}, rootDest, ir.Ty{}, false, cleanup); err != nil {
			return nil, err
		}
	}

	ex := New()
	ex.PushEvalContext(ev)
	return ex, nil
}

// Run drains the queue: each iteration pops one state and invokes
// Step. A plain continuation is requeued unchanged; a fork clones the
// state once per Successor, asks the constraint store's oracle whether
// that branch's Constraint is feasible (dropping the clone when it is
// not, or reporting the oracle's error as its outcome), pushes the
// Constraint onto the clone before redirecting its PC (or, for a Halts successor, reports
// its outcome immediately without requeuing it); a halt (clean return
// or error) is recorded and the loop moves to the next queued state —
// one poisoned branch never stops the rest of the exploration.
func (ex *Executor) Run() []Outcome {
	var outcomes []Outcome
	for {
		ev, ok := ex.popEvalContext()
		if !ok {
			return outcomes
		}

		cont, succs, err := ev.Step()
		switch {
		case !cont:
			outcomes = append(outcomes, finish(ev, err))

		case succs == nil:
			ex.PushEvalContext(ev)

		default:
			for _, s := range succs {
				clone := ev.Clone()
				if s.Constraint != nil {
					feasible, ferr := clone.Mem.Constraints().Feasible(s.Constraint)
					if ferr != nil {
						outcomes = append(outcomes, finish(clone, ferr))
						continue
					}
					if !feasible {
						continue
					}
					clone.Mem.Constraints().PushConstraint(s.Constraint)
				}
				if s.Halts {
					outcomes = append(outcomes, finish(clone, s.HaltErr))
					continue
				}
				clone.GotoBlock(s.Target)
				ex.PushEvalContext(clone)
			}
		}
	}
}

func finish(ev *frame.Evaluator, err error) Outcome {
	return Outcome{
		Err:         err,
		Constraints: ev.Mem.Constraints().Dump(),
		Leaks:       ev.Mem.LeakReport(),
	}
}
