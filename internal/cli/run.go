package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/stepgraph/internal/presentation/tui"
	"github.com/aretw0/stepgraph/pkg/adapters/file"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/muesli/termenv"
)

// Output formats for RunFile.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// RunOptions selects what RunFile executes and how it prints the result.
type RunOptions struct {
	// GraphPath is a graph document; when empty, GraphID names a stored graph.
	GraphPath string
	GraphID   string
	// StatePath is the initial state document. Empty means an empty state.
	StatePath string

	Format string
	Diff   bool

	// Render turns the markdown report into terminal output. Nil prints the
	// markdown as is.
	Render  func(string) (string, error)
	Profile termenv.Profile
}

// RunFile loads a graph and an initial state, runs it and prints the outcome
// to w. A failed run is printed and also returned as an error.
func RunFile(ctx context.Context, app *App, opts RunOptions, w io.Writer) (*domain.RunRecord, error) {
	initial := domain.State{}
	if opts.StatePath != "" {
		state, err := file.LoadState(opts.StatePath)
		if err != nil {
			return nil, err
		}
		initial = state
	}

	var (
		rec *domain.RunRecord
		err error
	)
	switch {
	case opts.GraphPath != "":
		g, loadErr := file.LoadGraph(opts.GraphPath)
		if loadErr != nil {
			return nil, loadErr
		}
		rec, err = app.Engine.RunGraph(ctx, g, initial)
	case opts.GraphID != "":
		rec, err = app.Engine.Run(ctx, opts.GraphID, initial)
	default:
		return nil, errors.New("either a graph file or a graph id is required")
	}
	if rec == nil {
		return nil, err
	}

	if printErr := PrintRun(w, rec, initial, opts); printErr != nil {
		return rec, errors.Join(err, printErr)
	}
	return rec, err
}

// PrintRun writes rec to w in the format opts selects.
func PrintRun(w io.Writer, rec *domain.RunRecord, initial domain.State, opts RunOptions) error {
	if opts.Format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	report := tui.Report(rec, initial, opts.Diff)
	if opts.Render != nil {
		rendered, err := opts.Render(report)
		if err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		report = rendered
	}
	if _, err := fmt.Fprintln(w, tui.StatusLine(opts.Profile, rec)); err != nil {
		return err
	}
	_, err := io.WriteString(w, report)
	return err
}
