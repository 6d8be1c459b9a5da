package sequence

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryAllocatorMonotonic(t *testing.T) {
	alloc := NewMemory(41)
	ctx := context.Background()

	n, err := alloc.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(42), n)

	n, err = alloc.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(43), n)
}

func TestMemoryAllocatorNoDuplicatesUnderConcurrency(t *testing.T) {
	alloc := NewMemory(0)
	ctx := context.Background()

	const goroutines = 100
	seen := make(chan int64, goroutines)
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := alloc.Next(ctx)
			require.NoError(t, err)
			seen <- n
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool, goroutines)
	for n := range seen {
		require.False(t, unique[n], "sequence number %d issued twice", n)
		unique[n] = true
	}
	require.Len(t, unique, goroutines)
}
