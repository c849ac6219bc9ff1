package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func stepCmd() *cobra.Command {
	var maxSteps int
	cmd := &cobra.Command{
		Use:   "step <scenario.json>",
		Short: "trace the entry state one statement/terminator at a time",
		Long: "step traces the entry state's first branch-free prefix: it stops\n" +
			"as soon as the state forks, returns, or halts, or once --max-steps\n" +
			"is reached. Use repl to follow a fork interactively.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ex, err := newExecutor(args[0])
			if err != nil {
				return err
			}
			ev, ok := ex.PopEvalContext()
			if !ok {
				return fmt.Errorf("seer: scenario produced no entry state")
			}

			for i := 0; i < maxSteps; i++ {
				if ev.Done() {
					fmt.Println("state returned cleanly")
					return nil
				}
				cont, succs, err := ev.Step()
				if err != nil {
					fmt.Printf("step %d: halted: %v\n", i, err)
					return nil
				}
				if !cont {
					fmt.Printf("step %d: state returned cleanly\n", i)
					return nil
				}
				if succs != nil {
					fmt.Printf("step %d: forked into %d successor(s); switch to repl to follow one\n", i, len(succs))
					return nil
				}
				fmt.Printf("step %d: ok\n", i)
			}
			fmt.Printf("stopped after %d steps (--max-steps)\n", maxSteps)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxSteps, "max-steps", 1000, "stop tracing after this many steps")
	return cmd
}
