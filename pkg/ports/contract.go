package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractGraph(id string) *domain.GraphDefinition {
	return &domain.GraphDefinition{
		ID:        id,
		StartNode: "extract",
		Nodes: map[string]domain.NodeDefinition{
			"extract": {Name: "extract", Tool: "extract_functions", Next: "check"},
			"check": {
				Name:      "check",
				Tool:      "check_complexity",
				Condition: &domain.Condition{Key: "quality_score", Op: domain.OpGreaterOrEqual, Value: 0.8},
				OnSuccess: domain.Terminal,
				OnFailure: "extract",
			},
		},
	}
}

// RunGraphStoreContract verifies that a GraphStore implementation honours the
// port's contract. Adapters call it from their own tests.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	t.Helper()
	ctx := context.Background()
	prefix := "contract-graph-" + time.Now().Format("20060102150405")

	t.Run("Save and Get", func(t *testing.T) {
		g := contractGraph(prefix + "-a")
		require.NoError(t, store.Save(ctx, g))

		loaded, err := store.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, g.ID, loaded.ID)
		assert.Equal(t, g.StartNode, loaded.StartNode)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "check", loaded.Nodes["extract"].Next)

		check := loaded.Nodes["check"]
		require.NotNil(t, check.Condition)
		assert.Equal(t, "quality_score", check.Condition.Key)
		assert.Equal(t, domain.OpGreaterOrEqual, check.Condition.Op)
		assert.EqualValues(t, 0.8, check.Condition.Value)
		assert.Equal(t, "extract", check.OnFailure)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		g := contractGraph(prefix + "-b")
		require.NoError(t, store.Save(ctx, g))

		g2 := contractGraph(g.ID)
		g2.StartNode = "check"
		require.NoError(t, store.Save(ctx, g2))

		loaded, err := store.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "check", loaded.StartNode)
	})

	t.Run("Isolation", func(t *testing.T) {
		g := contractGraph(prefix + "-c")
		require.NoError(t, store.Save(ctx, g))

		// Mutating the saved value and a loaded copy must not leak into the store.
		g.StartNode = "mutated"
		loaded, err := store.Get(ctx, g.ID)
		require.NoError(t, err)
		loaded.Nodes["extract"] = domain.NodeDefinition{Name: "extract", Tool: "other"}

		again, err := store.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, "extract", again.StartNode)
		assert.Equal(t, "extract_functions", again.Nodes["extract"].Tool)
	})

	t.Run("List and Delete", func(t *testing.T) {
		id1, id2 := prefix+"-list-1", prefix+"-list-2"
		require.NoError(t, store.Save(ctx, contractGraph(id2)))
		require.NoError(t, store.Save(ctx, contractGraph(id1)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.IsNonDecreasing(t, ids)

		require.NoError(t, store.Delete(ctx, id1))
		_, err = store.Get(ctx, id1)
		assert.ErrorIs(t, err, domain.ErrGraphNotFound)

		ids, err = store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, ids, id1)

		assert.NoError(t, store.Delete(ctx, prefix+"-never-saved"))
	})

	t.Run("Any Id Is Listable", func(t *testing.T) {
		for _, id := range []string{"index", "lock:index"} {
			require.NoError(t, store.Save(ctx, contractGraph(id)))
		}
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "index")
		assert.Contains(t, ids, "lock:index")

		loaded, err := store.Get(ctx, "index")
		require.NoError(t, err)
		assert.Equal(t, "index", loaded.ID)
		require.NoError(t, store.Delete(ctx, "index"))
		require.NoError(t, store.Delete(ctx, "lock:index"))
	})
}

func contractRun(runID string) *domain.RunRecord {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := domain.NewRunRecord(runID, "review", "extract", domain.State{"code": "package main"}, 10, started)
	rec.Log = append(rec.Log, domain.LogEntry{
		Node:      "extract",
		Timestamp: started.Add(time.Second),
		State:     domain.State{"code": "package main", "functions": []any{"main"}},
	})
	rec.Iterations = 1
	rec.StoppedAtBound = true
	rec.Status = domain.StatusCompleted
	rec.Finished = true
	rec.CurrentNode = nil
	rec.FinalState = domain.State{"code": "package main", "functions": []any{"main"}, "quality_score": 0.9}
	rec.FinishedAt = started.Add(2 * time.Second)
	return rec
}

// RunRunStoreContract verifies that a RunStore implementation honours the
// port's contract. Adapters call it from their own tests.
func RunRunStoreContract(t *testing.T, store RunStore) {
	t.Helper()
	ctx := context.Background()
	prefix := "contract-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Get", func(t *testing.T) {
		rec := contractRun(prefix + "-a")
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Get(ctx, rec.RunID)
		require.NoError(t, err)
		assert.Equal(t, rec.RunID, loaded.RunID)
		assert.Equal(t, rec.GraphID, loaded.GraphID)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
		assert.True(t, loaded.Finished)
		assert.True(t, loaded.BoundReached(), "bound flag survives storage")
		assert.Nil(t, loaded.CurrentNode)
		assert.Equal(t, 1, loaded.Iterations)
		assert.Equal(t, 10, loaded.MaxIterations)
		assert.True(t, rec.StartedAt.Equal(loaded.StartedAt))
		assert.True(t, rec.FinishedAt.Equal(loaded.FinishedAt))

		require.Len(t, loaded.Log, 1)
		assert.Equal(t, "extract", loaded.Log[0].Node)
		assert.True(t, rec.Log[0].Timestamp.Equal(loaded.Log[0].Timestamp))
		assert.Equal(t, []any{"main"}, loaded.Log[0].State["functions"])
		assert.EqualValues(t, 0.9, loaded.FinalState["quality_score"])
	})

	t.Run("Failed Run Keeps Current Node", func(t *testing.T) {
		rec := contractRun(prefix + "-failed")
		node := "check"
		rec.Status = domain.StatusFailed
		rec.Finished = false
		rec.CurrentNode = &node
		rec.ErrorKind = domain.ErrorKindToolExecution
		rec.Error = "boom"
		require.NoError(t, store.Save(ctx, rec))

		loaded, err := store.Get(ctx, rec.RunID)
		require.NoError(t, err)
		assert.Equal(t, "check", loaded.Current())
		assert.Equal(t, domain.ErrorKindToolExecution, loaded.ErrorKind)
		assert.Equal(t, "boom", loaded.Error)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		rec := contractRun(prefix + "-iso")
		require.NoError(t, store.Save(ctx, rec))

		rec.FinalState["code"] = "mutated"
		loaded, err := store.Get(ctx, rec.RunID)
		require.NoError(t, err)
		loaded.Log[0].State["code"] = "mutated"

		again, err := store.Get(ctx, rec.RunID)
		require.NoError(t, err)
		assert.Equal(t, "package main", again.FinalState["code"])
		assert.Equal(t, "package main", again.Log[0].State["code"])
	})

	t.Run("List and Delete", func(t *testing.T) {
		id1, id2 := prefix+"-list-1", prefix+"-list-2"
		require.NoError(t, store.Save(ctx, contractRun(id2)))
		require.NoError(t, store.Save(ctx, contractRun(id1)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.IsNonDecreasing(t, ids)

		require.NoError(t, store.Delete(ctx, id1))
		_, err = store.Get(ctx, id1)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Any Id Is Listable", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractRun("index")))
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "index")
		require.NoError(t, store.Delete(ctx, "index"))
	})
}

// RunSessionStoreContract verifies that a SessionStore implementation honours
// the port's contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()
	prefix := "contract-session-" + time.Now().Format("20060102150405")
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Save and Get", func(t *testing.T) {
		s := &domain.Session{ID: prefix + "-a", Iteration: 3, LastRunID: "run-9", UpdatedAt: updated}
		require.NoError(t, store.Save(ctx, s))

		loaded, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded.Iteration)
		assert.Equal(t, "run-9", loaded.LastRunID)
		assert.False(t, loaded.Accepted)
		assert.True(t, updated.Equal(loaded.UpdatedAt))

		loaded.Iteration = 99
		again, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, again.Iteration)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, prefix+"-missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List and Delete", func(t *testing.T) {
		id := prefix + "-list"
		require.NoError(t, store.Save(ctx, &domain.Session{ID: id, UpdatedAt: updated}))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id)

		require.NoError(t, store.Delete(ctx, id))
		_, err = store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Any Id Is Listable", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, &domain.Session{ID: prefix + "-other", UpdatedAt: updated}))
		require.NoError(t, store.Save(ctx, &domain.Session{ID: "index", Iteration: 1, UpdatedAt: updated}))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "index")
		assert.Contains(t, ids, prefix+"-other")

		loaded, err := store.Get(ctx, "index")
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Iteration)
		require.NoError(t, store.Delete(ctx, "index"))
	})
}
