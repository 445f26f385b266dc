package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// endID is the synthetic node every terminal edge points at.
const endID = "__end__"

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
	// Failed marks CurrentNode as the node where the run failed.
	Failed bool
}

// OverlayFromRun builds an overlay from a run record: every logged node is
// visited, and an unfinished run highlights the node it stopped at.
func OverlayFromRun(rec *domain.RunRecord) *GraphOverlay {
	if rec == nil {
		return nil
	}
	o := &GraphOverlay{VisitedNodes: make([]string, 0, len(rec.Log))}
	for _, entry := range rec.Log {
		o.VisitedNodes = append(o.VisitedNodes, entry.Node)
	}
	if !rec.Finished {
		o.CurrentNode = rec.Current()
		o.Failed = rec.Status == domain.StatusFailed
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart for g.
// Shapes:
// - Start node: ((Circle))
// - Conditional node: {{Hexagon}}
// - Other nodes: [[Subroutine]]
// Conditional edges are labelled with the condition and "else".
// Nodes are emitted in name order so the output is stable.
func GenerateMermaid(g *domain.GraphDefinition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	usesEnd := false
	edge := func(from, to, label string) {
		target := endID
		if to == domain.Terminal {
			usesEnd = true
		} else {
			target = sanitizeMermaidID(to)
		}
		if label == "" {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, target)
			return
		}
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", from, strings.ReplaceAll(label, "\"", "'"), target)
	}

	for _, name := range g.NodeNames() {
		node := g.Nodes[name]
		safeID := sanitizeMermaidID(name)

		opener, closer := "[[", "]]"
		switch {
		case name == g.StartNode:
			opener, closer = "((", "))"
		case node.IsConditional():
			opener, closer = "{{", "}}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> %s\"%s\n", safeID, opener, name, node.Tool, closer)

		if node.IsConditional() {
			edge(safeID, node.OnSuccess, node.Condition.String())
			edge(safeID, node.OnFailure, "else")
			continue
		}
		edge(safeID, node.Next, "")
	}

	if usesEnd {
		fmt.Fprintf(&sb, "    %s(((\"end\")))\n", endID)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps labels readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visited[safeID] && safeID != "" {
				visited[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			class := "current"
			if overlay.Failed {
				class = "failed"
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(overlay.CurrentNode), class)
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
