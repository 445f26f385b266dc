package ports

import (
	"context"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// GraphStore persists graph definitions.
// Implementations must hand out copies: mutating a returned graph never
// changes what is stored.
type GraphStore interface {
	// Save stores g under g.ID, replacing any previous definition.
	Save(ctx context.Context, g *domain.GraphDefinition) error

	// Get retrieves a graph by id.
	// Returns an error wrapping domain.ErrGraphNotFound if the id is unknown.
	Get(ctx context.Context, id string) (*domain.GraphDefinition, error)

	// List returns the stored graph ids in sorted order.
	List(ctx context.Context) ([]string, error)

	// Delete removes a graph. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// RunStore persists run records.
type RunStore interface {
	// Save stores rec under rec.RunID, replacing any previous record.
	Save(ctx context.Context, rec *domain.RunRecord) error

	// Get retrieves a run by id.
	// Returns an error wrapping domain.ErrRunNotFound if the id is unknown.
	Get(ctx context.Context, runID string) (*domain.RunRecord, error)

	// List returns the stored run ids in sorted order.
	List(ctx context.Context) ([]string, error)

	// Delete removes a run. Deleting an unknown id is not an error.
	Delete(ctx context.Context, runID string) error
}

// SessionStore persists review sessions.
type SessionStore interface {
	// Save stores s under s.ID, replacing any previous state.
	Save(ctx context.Context, s *domain.Session) error

	// Get retrieves a session by id.
	// Returns an error wrapping domain.ErrSessionNotFound if the id is unknown.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// List returns the stored session ids in sorted order.
	List(ctx context.Context) ([]string, error)

	// Delete removes a session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
