package session

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/stepgraph/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockEntriesAreReleased(t *testing.T) {
	m := NewManager(nil, memory.NewSessionStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := []string{"a", "b", "c"}[i%3]
			err := m.WithLock(ctx, id, func(context.Context) error {
				assert.LessOrEqual(t, m.activeLocks(), 3)
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, m.activeLocks())
}
