package dryrun

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_RunsTasksInOrder(t *testing.T) {
	q := NewQueue()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		q.Submit(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	wg.Wait()
	q.Stop()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order, "a single-worker FIFO must preserve submission order")
}

func TestQueue_StopDrainsQueuedTasks(t *testing.T) {
	q := NewQueue()

	ran := false
	q.Submit(func() { ran = true })
	q.Stop()

	assert.True(t, ran)
}
