package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stepgraph/internal/logging"
	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/aretw0/stepgraph/pkg/ports"
	"github.com/aretw0/stepgraph/pkg/schema"
	"github.com/aretw0/stepgraph/pkg/workflows/codereview"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// ErrInvalidInput is returned when a submission does not carry reviewable code.
var ErrInvalidInput = errors.New("invalid review input")

// Runner executes a stored graph. *stepgraph.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, graphID string, initial domain.State) (*domain.RunRecord, error)
}

// Result is the outcome of one submission.
type Result struct {
	Accepted bool                   `json:"accepted"`
	Message  string                 `json:"message"`
	Review   codereview.ReviewState `json:"-"`
	Session  *domain.Session        `json:"session"`
	Run      *domain.RunRecord      `json:"run"`
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serialises review submissions per session.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	runner  Runner
	store   ports.SessionStore
	graphID string

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithGraph selects the graph each submission runs (default code_review_default).
func WithGraph(graphID string) Option {
	return func(m *Manager) {
		m.graphID = graphID
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager running reviews through runner and
// keeping session progress in store.
func NewManager(runner Runner, store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		runner:  runner,
		store:   store,
		graphID: codereview.DefaultGraphID,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit reviews input["code"] within the session id. The input may carry a
// "threshold"; the iteration counter always comes from the session.
//
// A failed run still returns a Result holding the record, together with the
// run error. The session is only advanced by completed runs. Any other error,
// such as a session that could not be stored, returns a nil Result.
func (m *Manager) Submit(ctx context.Context, id string, input domain.State) (*Result, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: session id is empty", ErrInvalidInput)
	}
	if err := schema.Validate(codereview.InputSchema, input); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if code, _ := input[codereview.KeyCode].(string); code == "" {
		return nil, fmt.Errorf("%w: no code provided", ErrInvalidInput)
	}

	var (
		res       *Result
		runFailed bool
	)
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		sess, err := m.store.Get(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			sess = &domain.Session{ID: id}
		} else if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		initial := input.Clone()
		initial[codereview.KeyIteration] = sess.Iteration

		rec, runErr := m.runner.Run(ctx, m.graphID, initial)
		if rec == nil {
			return runErr
		}
		res = &Result{Session: sess, Run: rec}
		if runErr != nil {
			res.Message = fmt.Sprintf("Review failed at node %q: %s", rec.Current(), rec.Error)
			runFailed = true
			return runErr
		}

		review, err := codereview.Decode(rec.FinalState)
		if err != nil {
			return err
		}
		res.Review = review
		res.Accepted = review.Accepted()
		res.Message = Message(review)

		sess.Iteration = review.Iteration
		sess.LastRunID = rec.RunID
		sess.Accepted = res.Accepted
		sess.UpdatedAt = m.now()
		if err := m.store.Save(context.WithoutCancel(ctx), sess); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		m.logger.Info("review submitted",
			"session_id", id,
			"run_id", rec.RunID,
			"iteration", review.Iteration,
			"quality_score", review.QualityScore,
			"accepted", res.Accepted,
		)
		return nil
	})
	if err != nil && !runFailed {
		return nil, err
	}
	return res, err
}

// Message renders the verdict shown to the client.
func Message(review codereview.ReviewState) string {
	if review.Accepted() {
		return fmt.Sprintf("Code accepted! Quality score meets threshold. (Iterations: %d)", review.Iteration)
	}
	return fmt.Sprintf("Quality score too low. Rejected. Looping... (Iteration %d)", review.Iteration)
}

// Get returns a session's progress.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, error) {
	return m.store.Get(ctx, id)
}

// Reset forgets a session so the next submission starts at iteration 0.
func (m *Manager) Reset(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// activeLocks reports how many sessions currently hold a local lock entry.
func (m *Manager) activeLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, "session:"+id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
