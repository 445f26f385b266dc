package main

import (
	"fmt"
	"os"

	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/internal/presentation/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run [graph-file]",
	Short: "Run a graph once and print the run record",
	Long: `Runs a graph against an initial state and prints what happened.

The graph is either a file (JSON or YAML) given as argument, or a stored graph
selected with --graph-id, such as the built-in code_review_default.
On a terminal the report is rendered as markdown; otherwise it is printed as is.`,
	Example: `  stepgraph run graph.yaml --state state.json --diff
  stepgraph run --graph-id code_review_default --state review.yaml --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{}
		opts.GraphID, _ = cmd.Flags().GetString("graph-id")
		opts.StatePath, _ = cmd.Flags().GetString("state")
		opts.Format, _ = cmd.Flags().GetString("format")
		opts.Diff, _ = cmd.Flags().GetBool("diff")
		if len(args) == 1 {
			opts.GraphPath = args[0]
		}
		if opts.GraphPath == "" && opts.GraphID == "" {
			return fmt.Errorf("a graph file or --graph-id is required")
		}
		if opts.Format != cli.FormatText && opts.Format != cli.FormatJSON {
			return fmt.Errorf("unknown format %q", opts.Format)
		}

		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			opts.Profile = termenv.NewOutput(f).Profile
			width, _, sizeErr := term.GetSize(int(f.Fd()))
			if sizeErr != nil || width <= 0 {
				width = 100
			}
			if render, err := tui.NewRenderer(width); err == nil {
				opts.Render = render
			}
		} else {
			opts.Profile = termenv.Ascii
		}

		_, err = cli.RunFile(ctx, app, opts, out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("graph-id", "", "Run a stored graph instead of a file")
	runCmd.Flags().StringP("state", "s", "", "Initial state file (JSON or YAML)")
	runCmd.Flags().StringP("format", "f", cli.FormatText, "Output format: text or json")
	runCmd.Flags().Bool("diff", false, "Show the keys each node changed")
}
