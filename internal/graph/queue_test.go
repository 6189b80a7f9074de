package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphsync/internal/source"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()
	_, ok := q.TryDequeue()
	assert.False(t, ok)

	for _, name := range []string{"a", "b", "c"} {
		q.Enqueue(source.Modified(source.Diff{Name: name}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, e.Diff.Name)
	}
	assert.Zero(t, q.Len())
}

func TestEventQueue_Clear(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(source.Removed())
	q.Enqueue(source.Removed())

	assert.Equal(t, 2, q.Clear())
	assert.Zero(t, q.Len())
	assert.Zero(t, q.Clear())
}

func TestEventQueue_ConcurrentEnqueue(t *testing.T) {
	q := newEventQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(source.Removed())
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, q.Len())
}
