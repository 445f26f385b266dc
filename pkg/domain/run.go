package domain

import "time"

// RunStatus is the lifecycle status of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"   // Executing nodes
	StatusCompleted RunStatus = "completed" // Terminal routing or safety bound reached
	StatusFailed    RunStatus = "failed"    // Tool, lookup or routing error
)

// LogEntry records one executed node.
// State is an independent copy taken right after the node's tool returned.
type LogEntry struct {
	Node      string    `json:"node"`
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"state_snapshot"`
}

// RunRecord is the audit artifact of one run.
type RunRecord struct {
	RunID   string    `json:"run_id"`
	GraphID string    `json:"graph_id"`
	Status  RunStatus `json:"status"`

	// Finished is true once the run reached StatusCompleted.
	Finished bool `json:"finished"`

	// CurrentNode is the node being executed, nil once finished.
	// A failed run keeps the node at which it failed.
	CurrentNode *string `json:"current_node"`

	FinalState State      `json:"final_state"`
	Log        []LogEntry `json:"log"`

	Iterations    int `json:"iterations"`
	MaxIterations int `json:"max_iterations"`

	// StoppedAtBound is set when the safety bound, not a terminal node,
	// ended the run.
	StoppedAtBound bool `json:"bound_reached,omitempty"`

	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewRunRecord creates a running record positioned at startNode.
func NewRunRecord(runID, graphID, startNode string, initial State, maxIterations int, now time.Time) *RunRecord {
	start := startNode
	return &RunRecord{
		RunID:         runID,
		GraphID:       graphID,
		Status:        StatusRunning,
		CurrentNode:   &start,
		FinalState:    initial.Clone(),
		Log:           []LogEntry{},
		MaxIterations: maxIterations,
		StartedAt:     now,
	}
}

// BoundReached reports whether the run was forced to complete by the safety bound.
// A run whose last node reached the terminal marker on the bound-th step
// completed normally and does not count.
func (r *RunRecord) BoundReached() bool {
	return r.Status == StatusCompleted && r.StoppedAtBound
}

// Current returns the current node name, or "" when there is none.
func (r *RunRecord) Current() string {
	if r.CurrentNode == nil {
		return ""
	}
	return *r.CurrentNode
}

// Clone returns a deep copy of the record, safe to hand to another owner.
func (r *RunRecord) Clone() *RunRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.CurrentNode != nil {
		cur := *r.CurrentNode
		out.CurrentNode = &cur
	}
	out.FinalState = r.FinalState.Clone()
	out.Log = make([]LogEntry, len(r.Log))
	for i, entry := range r.Log {
		out.Log[i] = LogEntry{Node: entry.Node, Timestamp: entry.Timestamp, State: entry.State.Clone()}
	}
	return &out
}
