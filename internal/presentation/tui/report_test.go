package tui_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepgraph/internal/presentation/tui"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *domain.RunRecord {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := domain.NewRunRecord("run-1", "review", "extract", domain.State{"code": "x"}, 10, started)
	rec.Log = []domain.LogEntry{
		{Node: "extract", Timestamp: started, State: domain.State{"code": "x", "functions": []any{"f"}}},
		{Node: "clean", Timestamp: started.Add(time.Millisecond), State: domain.State{"functions": []any{"f"}}},
	}
	rec.Iterations = 2
	rec.Status = domain.StatusCompleted
	rec.Finished = true
	rec.CurrentNode = nil
	rec.FinalState = rec.Log[1].State
	return rec
}

func TestStatusLine(t *testing.T) {
	rec := sampleRun()
	assert.Equal(t, "COMPLETED  run=run-1 graph=review steps=2/10", tui.StatusLine(termenv.Ascii, rec))

	rec.Iterations = 10
	rec.StoppedAtBound = true
	assert.Contains(t, tui.StatusLine(termenv.Ascii, rec), "safety bound reached")

	node := "clean"
	rec.Status = domain.StatusFailed
	rec.CurrentNode = &node
	rec.ErrorKind = domain.ErrorKindToolExecution
	assert.Contains(t, tui.StatusLine(termenv.Ascii, rec), "FAILED at clean (tool_execution_error)")

	colored := tui.StatusLine(termenv.TrueColor, rec)
	assert.Contains(t, colored, "\x1b[")
}

func TestReport(t *testing.T) {
	rec := sampleRun()

	plain := tui.Report(rec, domain.State{"code": "x"}, false)
	assert.Contains(t, plain, "# Run `run-1`")
	assert.Contains(t, plain, "| 1 | `extract` | 12:00:00.000 |\n")
	assert.NotContains(t, plain, "Changed")
	assert.Contains(t, plain, "\"functions\": [\n    \"f\"\n  ]")

	withDiffs := tui.Report(rec, domain.State{"code": "x"}, true)
	assert.Contains(t, withDiffs, "| 1 | `extract` | 12:00:00.000 | `functions` |")
	assert.Contains(t, withDiffs, "| 2 | `clean` | 12:00:00.001 | ~~code~~ |")

	empty := domain.NewRunRecord("run-2", "review", "extract", nil, 10, time.Now())
	assert.Contains(t, tui.Report(empty, nil, true), "_No node was executed._")
}

func TestRenderer(t *testing.T) {
	render, err := tui.NewRenderer(80)
	require.NoError(t, err)
	out, err := render(tui.Report(sampleRun(), nil, false))
	require.NoError(t, err)
	assert.Contains(t, out, "run-1")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, termenv.Ascii)
	assert.Equal(t, 8, strings.Count(buf.String(), "\n"))
}
