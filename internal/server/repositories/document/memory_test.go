package document

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_ReadAfterWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	state, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.Version)
	assert.Empty(t, state.Content)

	v, err := repo.Write(ctx, []byte("hello"), "client-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	state, err = repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), state.Content)
	assert.Equal(t, int64(1), state.Version)
}

func TestMemoryRepository_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	// both writes succeed; the later-serialized one owns the content,
	// but the losing writer's version and history entry are kept
	v1, err := repo.Write(ctx, []byte("draft from a"), "client-a")
	require.NoError(t, err)
	v2, err := repo.Write(ctx, []byte("draft from b"), "client-b")
	require.NoError(t, err)

	assert.Equal(t, int64(1), v1)
	assert.Equal(t, int64(2), v2)

	state, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("draft from b"), state.Content)

	entries, err := repo.HistorySince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "client-a", entries[0].ClientID)
	assert.Equal(t, "client-b", entries[1].ClientID)
}

func TestMemoryRepository_ConcurrentWritesGapFree(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := repo.Write(ctx, fmt.Appendf(nil, "content %d", i), fmt.Sprintf("client-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), state.Version)

	entries, err := repo.HistorySince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, n)
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Version, "versions must be the consecutive integers 1..n")
	}
}

func TestMemoryRepository_HistorySince(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.now = func() time.Time { return time.Unix(1700000000, 0) }

	for i := 0; i < 5; i++ {
		_, err := repo.Write(ctx, []byte("x"), "c")
		require.NoError(t, err)
	}

	cases := []struct {
		after int64
		want  []int64
	}{
		{after: 0, want: []int64{1, 2, 3, 4, 5}},
		{after: 3, want: []int64{4, 5}},
		{after: 5, want: nil},
		{after: 99, want: nil},
		{after: -7, want: []int64{1, 2, 3, 4, 5}},
	}
	for _, tc := range cases {
		entries, err := repo.HistorySince(ctx, tc.after)
		require.NoError(t, err)

		var got []int64
		for _, e := range entries {
			got = append(got, e.Version)
		}
		assert.Equal(t, tc.want, got, "after=%d", tc.after)

		// idempotent against unchanged state
		again, err := repo.HistorySince(ctx, tc.after)
		require.NoError(t, err)
		assert.Equal(t, entries, again)
	}
}

func TestMemoryRepository_ReadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.Write(ctx, []byte("immutable"), "c")
	require.NoError(t, err)

	state, err := repo.Read(ctx)
	require.NoError(t, err)
	state.Content[0] = 'X'

	state2, err := repo.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), state2.Content)
}
