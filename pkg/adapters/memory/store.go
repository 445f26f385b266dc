package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/stepgraph/pkg/domain"
)

// GraphStore implements ports.GraphStore in memory.
// Safe for concurrent use.
type GraphStore struct {
	mu     sync.RWMutex
	graphs map[string]*domain.GraphDefinition
}

// NewGraphStore creates an in-memory graph store seeded with graphs.
func NewGraphStore(graphs ...*domain.GraphDefinition) *GraphStore {
	s := &GraphStore{graphs: make(map[string]*domain.GraphDefinition)}
	for _, g := range graphs {
		s.graphs[g.ID] = g.Clone()
	}
	return s
}

// Save stores a copy of g, replacing any previous definition.
func (s *GraphStore) Save(_ context.Context, g *domain.GraphDefinition) error {
	if g == nil {
		return fmt.Errorf("%w: graph is nil", domain.ErrGraphInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.ID] = g.Clone()
	return nil
}

// Get returns a copy of the stored graph.
func (s *GraphStore) Get(_ context.Context, id string) (*domain.GraphDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.graphs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrGraphNotFound, id)
	}
	return g.Clone(), nil
}

// List returns the stored graph ids, sorted.
func (s *GraphStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.graphs), nil
}

// Delete removes a graph.
func (s *GraphStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.graphs, id)
	return nil
}

// RunStore implements ports.RunStore in memory.
// Safe for concurrent use.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.RunRecord
}

// NewRunStore creates an empty in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*domain.RunRecord)}
}

// Save stores a deep copy of rec.
func (s *RunStore) Save(_ context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return fmt.Errorf("run record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[rec.RunID] = rec.Clone()
	return nil
}

// Get returns a deep copy of the stored record.
func (s *RunStore) Get(_ context.Context, runID string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrRunNotFound, runID)
	}
	return rec.Clone(), nil
}

// List returns the stored run ids, sorted.
func (s *RunStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.runs), nil
}

// Delete removes a run.
func (s *RunStore) Delete(_ context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SessionStore implements ports.SessionStore in memory.
// Safe for concurrent use.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.Session)}
}

// Save stores a copy of sess.
func (s *SessionStore) Save(_ context.Context, sess *domain.Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = *sess
	return nil
}

// Get returns a copy of the stored session.
func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrSessionNotFound, id)
	}
	return &sess, nil
}

// List returns the stored session ids, sorted.
func (s *SessionStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.sessions), nil
}

// Delete removes a session.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
