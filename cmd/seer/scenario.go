package main

import (
	"github.com/spacejam/seer/arch"
	"github.com/spacejam/seer/cmd/seer/program"
	"github.com/spacejam/seer/executor"
	"github.com/spacejam/seer/frame"
	"github.com/spacejam/seer/memory"
	"github.com/spacejam/seer/symbolic"
)

// newEvaluator builds a fresh, empty Evaluator over prog's type system
// and MIR table. No solver is wired in (symbolic.AlwaysFeasible),
// matching the spec's framing that the real feasibility backend is an
// external collaborator cmd/seer does not implement.
func newEvaluator(prog *program.Program) *frame.Evaluator {
	mem := memory.New(&arch.AMD64, symbolic.NewStore(symbolic.AlwaysFeasible), limits.MemorySize)
	return frame.New(mem, prog.TS, prog.MIR, limits)
}

// newExecutor loads path's scenario and pushes its entry point as the
// executor's single root state.
func newExecutor(path string) (*program.Program, *executor.Executor, error) {
	prog, err := program.Load(path)
	if err != nil {
		return nil, nil, err
	}
	ev := newEvaluator(prog)
	ex, err := executor.NewMain(ev, prog.TS, prog.MIR, prog.Main)
	if err != nil {
		return nil, nil, err
	}
	return prog, ex, nil
}
