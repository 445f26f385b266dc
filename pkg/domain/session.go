package domain

import "time"

// Session is a client's iterative review conversation. Each submission runs
// the review graph once and carries the iteration counter forward.
type Session struct {
	ID        string    `json:"id"`
	Iteration int       `json:"iteration"`
	LastRunID string    `json:"last_run_id,omitempty"`
	Accepted  bool      `json:"accepted"`
	UpdatedAt time.Time `json:"updated_at"`
}
