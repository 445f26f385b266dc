package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/stepgraph/internal/validator"
	"github.com/aretw0/stepgraph/pkg/adapters/file"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file>...",
	Short: "Validate graph files against the registered tools",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			g, err := file.LoadGraph(path)
			if err == nil {
				err = app.Engine.Validate(g)
			}
			if err != nil {
				failed++
				fmt.Fprintf(out, "✗ %s\n", path)
				var invalid *domain.GraphInvalidError
				if errors.As(err, &invalid) {
					for _, issue := range invalid.Issues {
						fmt.Fprintf(out, "    %s\n", issue)
					}
				} else {
					fmt.Fprintf(out, "    %v\n", err)
				}
				continue
			}

			fmt.Fprintf(out, "✓ %s (%s, %d nodes)\n", path, g.ID, len(g.Nodes))
			for _, name := range validator.Unreachable(g) {
				fmt.Fprintf(out, "    warning: node %q is unreachable from %q\n", name, g.StartNode)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d graphs are invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
