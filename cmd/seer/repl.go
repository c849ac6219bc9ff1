package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/spacejam/seer/executor"
	"github.com/spacejam/seer/frame"
)

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl <scenario.json>",
		Short: "step the work queue interactively, prompting at every fork",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ex, err := newExecutor(args[0])
			if err != nil {
				return err
			}
			rl, err := readline.New("seer> ")
			if err != nil {
				return err
			}
			defer rl.Close()
			return runRepl(rl, ex)
		},
	}
}

// runRepl drives ex one popped state at a time: "n" (or enter) steps
// the current state once, "c" runs the current state to completion
// without further prompting, and choosing a successor index after a
// fork pushes that clone back onto the queue and moves on to the next
// queued state. "q" quits early, leaving any still-queued states
// unexplored.
func runRepl(rl *readline.Instance, ex *executor.Executor) error {
	var outcomes int
	for {
		ev, ok := ex.PopEvalContext()
		if !ok {
			fmt.Printf("queue drained: %d path(s) completed\n", outcomes)
			return nil
		}

		running := true
		for running {
			line, err := rl.Readline()
			if err == io.EOF || err == readline.ErrInterrupt {
				return nil
			}
			if err != nil {
				return err
			}
			cmd := strings.TrimSpace(line)
			if cmd == "" {
				cmd = "n"
			}

			switch cmd {
			case "q":
				return nil
			case "n", "c":
				for {
					if ev.Done() {
						fmt.Println("  -> returned cleanly")
						outcomes++
						running = false
						break
					}
					cont, succs, stepErr := ev.Step()
					if stepErr != nil {
						fmt.Printf("  -> halted: %v\n", stepErr)
						outcomes++
						running = false
						break
					}
					if !cont {
						fmt.Println("  -> returned cleanly")
						outcomes++
						running = false
						break
					}
					if succs != nil {
						running = false
						if err := chooseSuccessor(rl, ex, ev, succs); err != nil {
							return err
						}
						break
					}
					if cmd == "n" {
						fmt.Println("  -> ok")
						break
					}
				}
			default:
				fmt.Printf("unknown command %q (n=step, c=continue, q=quit)\n", cmd)
			}
		}
	}
}

// chooseSuccessor prompts for which of succs to follow, pushing a
// clone of ev per choice back onto the queue the way Run forks
// automatically; the repl instead lets the operator pick one branch
// at a time, or "a" to push every branch the way Run would.
func chooseSuccessor(rl *readline.Instance, ex *executor.Executor, ev *frame.Evaluator, succs []frame.Successor) error {
	fmt.Printf("  -> forked into %d successor(s)\n", len(succs))
	for i, s := range succs {
		note := ""
		if s.Halts {
			note = " (halts)"
		}
		fmt.Printf("     [%d] target=%d%s\n", i, s.Target, note)
	}
	fmt.Print("follow which? (index, or 'a' for all) ")
	line, err := rl.Readline()
	if err != nil {
		return err
	}
	choice := strings.TrimSpace(line)

	push := func(s frame.Successor) {
		clone := ev.Clone()
		if s.Constraint != nil {
			clone.Mem.Constraints().PushConstraint(s.Constraint)
		}
		if s.Halts {
			fmt.Printf("     branch halts immediately: %v\n", s.HaltErr)
			return
		}
		clone.GotoBlock(s.Target)
		ex.PushEvalContext(clone)
	}

	if choice == "a" {
		for _, s := range succs {
			push(s)
		}
		return nil
	}
	n, err := strconv.Atoi(choice)
	if err != nil || n < 0 || n >= len(succs) {
		return fmt.Errorf("seer: invalid successor choice %q", choice)
	}
	push(succs[n])
	return nil
}
