package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.json>",
		Short: "drain every reachable path and report each path's outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ex, err := newExecutor(args[0])
			if err != nil {
				return err
			}

			outcomes := ex.Run()
			clean, failed := 0, 0
			for i, o := range outcomes {
				switch {
				case o.Err == nil:
					clean++
					fmt.Printf("path %d: clean, %d leaked allocation(s)\n", i, o.Leaks)
				default:
					failed++
					fmt.Printf("path %d: %v (constraints: %s)\n", i, o.Err, o.Constraints)
				}
			}
			fmt.Printf("%d path(s) explored: %d clean, %d failed\n", len(outcomes), clean, failed)
			return nil
		},
	}
}
