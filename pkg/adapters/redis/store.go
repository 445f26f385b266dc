package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "stepgraph:"

// noExpiry is the index score of entries without a TTL (2100-01-01).
const noExpiry = 4102444800

// Store holds the Redis connection shared by the graph and run views.
type Store struct {
	client *backend.Client
	prefix string
	runTTL time.Duration

	sessionTTL time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithRunTTL sets the expiration of run records. Graphs never expire.
func WithRunTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.runTTL = ttl
	}
}

// WithSessionTTL sets the expiration of idle review sessions.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.sessionTTL = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Store connected to address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client exposes the underlying client, e.g. to build a Locker on it.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Graphs returns a ports.GraphStore view backed by this connection.
func (s *Store) Graphs() *GraphStore {
	return &GraphStore{c: collection[domain.GraphDefinition]{store: s, kind: "graph", notFound: domain.ErrGraphNotFound}}
}

// Runs returns a ports.RunStore view backed by this connection.
func (s *Store) Runs() *RunStore {
	return &RunStore{c: collection[domain.RunRecord]{store: s, kind: "run", ttl: s.runTTL, notFound: domain.ErrRunNotFound}}
}

// Sessions returns a ports.SessionStore view backed by this connection.
func (s *Store) Sessions() *SessionStore {
	return &SessionStore{c: collection[domain.Session]{store: s, kind: "session", ttl: s.sessionTTL, notFound: domain.ErrSessionNotFound}}
}

// GraphStore implements ports.GraphStore using Redis.
type GraphStore struct {
	c collection[domain.GraphDefinition]
}

// Save stores g as JSON under its id.
func (g *GraphStore) Save(ctx context.Context, def *domain.GraphDefinition) error {
	if def == nil {
		return fmt.Errorf("%w: graph is nil", domain.ErrGraphInvalid)
	}
	return g.c.save(ctx, def.ID, def)
}

// Get loads a graph by id.
func (g *GraphStore) Get(ctx context.Context, id string) (*domain.GraphDefinition, error) {
	return g.c.get(ctx, id)
}

// List returns the stored graph ids, sorted.
func (g *GraphStore) List(ctx context.Context) ([]string, error) {
	return g.c.list(ctx)
}

// Delete removes a graph.
func (g *GraphStore) Delete(ctx context.Context, id string) error {
	return g.c.delete(ctx, id)
}

// RunStore implements ports.RunStore using Redis.
type RunStore struct {
	c collection[domain.RunRecord]
}

// Save stores rec as JSON under its run id, with the configured TTL.
func (r *RunStore) Save(ctx context.Context, rec *domain.RunRecord) error {
	if rec == nil {
		return errors.New("run record is nil")
	}
	return r.c.save(ctx, rec.RunID, rec)
}

// Get loads a run by id.
func (r *RunStore) Get(ctx context.Context, runID string) (*domain.RunRecord, error) {
	return r.c.get(ctx, runID)
}

// List returns the live run ids, sorted.
func (r *RunStore) List(ctx context.Context) ([]string, error) {
	return r.c.list(ctx)
}

// Delete removes a run.
func (r *RunStore) Delete(ctx context.Context, runID string) error {
	return r.c.delete(ctx, runID)
}

// SessionStore implements ports.SessionStore using Redis.
// Every save refreshes the session TTL.
type SessionStore struct {
	c collection[domain.Session]
}

// Save stores sess as JSON under its id.
func (r *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	return r.c.save(ctx, sess.ID, sess)
}

// Get loads a session by id.
func (r *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	return r.c.get(ctx, id)
}

// List returns the live session ids, sorted.
func (r *SessionStore) List(ctx context.Context) ([]string, error) {
	return r.c.list(ctx)
}

// Delete removes a session.
func (r *SessionStore) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

// collection stores JSON documents of one kind plus a ZSET index whose score
// is the expiry time, so List can prune entries whose keys already expired.
type collection[T any] struct {
	store    *Store
	kind     string
	ttl      time.Duration
	notFound error
}

func (c collection[T]) key(id string) string {
	return c.store.prefix + c.kind + ":" + id
}

// indexKey lives outside the entity namespace so no id can overwrite it.
func (c collection[T]) indexKey() string {
	return c.store.prefix + "index:" + c.kind
}

func (c collection[T]) save(ctx context.Context, id string, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", c.kind, err)
	}

	score := float64(noExpiry)
	if c.ttl > 0 {
		score = float64(time.Now().Add(c.ttl).Unix())
	}

	pipe := c.store.client.Pipeline()
	pipe.Set(ctx, c.key(id), data, c.ttl)
	pipe.ZAdd(ctx, c.indexKey(), backend.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save %s to redis: %w", c.kind, err)
	}
	return nil
}

func (c collection[T]) get(ctx context.Context, id string) (*T, error) {
	val, err := c.store.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %q", c.notFound, id)
		}
		return nil, fmt.Errorf("failed to get %s from redis: %w", c.kind, err)
	}

	var out T
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", c.kind, err)
	}
	return &out, nil
}

func (c collection[T]) list(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := c.store.client.ZRemRangeByScore(ctx, c.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired %s entries: %w", c.kind, err)
	}

	// The index is ordered by expiry, not by id.
	ids, err := c.store.client.ZRange(ctx, c.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", c.kind, err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c collection[T]) delete(ctx context.Context, id string) error {
	pipe := c.store.client.Pipeline()
	pipe.Del(ctx, c.key(id))
	pipe.ZRem(ctx, c.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}
