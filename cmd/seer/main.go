// The seer tool runs a hand-authored scenario (a JSON-described typed
// CFG, see package program) through the symbolic evaluator: "run"
// drains every reachable path to completion and reports each path's
// outcome, "step" traces the entry state's statements and terminators
// one at a time without forking, and "repl" drives the branching
// executor's work queue interactively, pausing at every fork so the
// operator can choose which arm to follow next.
//
// Grounded on cmd/viewcore/main.go's shape (a small main dispatching
// to subcommands, each a thin wrapper over the library packages) but
// built on cobra instead of stdlib flag, since cobra was already a
// direct teacher dependency (cmd/viewcore/objref.go) going unused for
// a full command tree.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spacejam/seer/frame"
)

var limits frame.Limits

func main() {
	root := &cobra.Command{
		Use:   "seer",
		Short: "a symbolic abstract interpreter for a typed control-flow-graph IR",
	}

	def := frame.DefaultLimits()
	root.PersistentFlags().Uint64Var(&limits.MemorySize, "memory-size", def.MemorySize, "memory cap in bytes")
	root.PersistentFlags().Uint64Var(&limits.StepLimit, "step-limit", def.StepLimit, "maximum steps before aborting a state")
	root.PersistentFlags().IntVar(&limits.StackLimit, "stack-limit", def.StackLimit, "maximum call-stack depth")

	root.AddCommand(runCmd(), stepCmd(), replCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
