package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/muesli/termenv"
)

// StatusLine summarises a run on one line, coloured for profile p:
// green when completed, yellow when the safety bound stopped it, red on failure.
func StatusLine(p termenv.Profile, rec *domain.RunRecord) string {
	var label, color string
	switch {
	case rec.Status == domain.StatusFailed:
		label, color = fmt.Sprintf("FAILED at %s (%s)", rec.Current(), rec.ErrorKind), "#ef4444"
	case rec.BoundReached():
		label, color = "COMPLETED (safety bound reached)", "#eab308"
	default:
		label, color = "COMPLETED", "#22c55e"
	}

	status := p.String(label).Foreground(p.Color(color)).Bold()
	return fmt.Sprintf("%s  run=%s graph=%s steps=%d/%d",
		status, rec.RunID, rec.GraphID, rec.Iterations, rec.MaxIterations)
}

// Report renders a run as markdown: a summary, one row per executed node and
// the final state. With diffs set, each row lists the keys the node changed,
// compared against initial for the first step.
func Report(rec *domain.RunRecord, initial domain.State, diffs bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Run `%s`\n\n", rec.RunID)
	fmt.Fprintf(&sb, "- **Graph:** `%s`\n", rec.GraphID)
	fmt.Fprintf(&sb, "- **Status:** %s\n", rec.Status)
	fmt.Fprintf(&sb, "- **Steps:** %d of %d\n", rec.Iterations, rec.MaxIterations)
	if rec.Status == domain.StatusFailed {
		fmt.Fprintf(&sb, "- **Failed at:** `%s`\n", rec.Current())
		fmt.Fprintf(&sb, "- **Error:** %s\n", rec.Error)
	}
	sb.WriteString("\n## Steps\n\n")

	if len(rec.Log) == 0 {
		sb.WriteString("_No node was executed._\n")
	} else {
		var changes []domain.StateDiff
		if diffs {
			changes = domain.StepDiffs(initial, rec.Log)
			sb.WriteString("| # | Node | Time | Changed |\n|---|---|---|---|\n")
		} else {
			sb.WriteString("| # | Node | Time |\n|---|---|---|\n")
		}
		for i, entry := range rec.Log {
			row := fmt.Sprintf("| %d | `%s` | %s |", i+1, entry.Node, entry.Timestamp.Format("15:04:05.000"))
			if diffs {
				row += " " + changedKeys(changes[i]) + " |"
			}
			sb.WriteString(row + "\n")
		}
	}

	sb.WriteString("\n## Final State\n\n```json\n")
	data, err := json.MarshalIndent(rec.FinalState, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}
	sb.Write(data)
	sb.WriteString("\n```\n")
	return sb.String()
}

func changedKeys(d domain.StateDiff) string {
	if len(d) == 0 {
		return "-"
	}
	keys := d.Keys()
	for i, k := range keys {
		if d[k] == nil {
			keys[i] = "~~" + k + "~~"
		} else {
			keys[i] = "`" + k + "`"
		}
	}
	return strings.Join(keys, ", ")
}
