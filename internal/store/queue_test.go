package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_ListAllRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("e1", 500)
	ev.Timestamp = ev.Timestamp.Add(123456789) // sub-second precision survives

	require.NoError(t, s.Enqueue(ctx, ev))

	got, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])
}

func TestEnqueue_IdempotentUpsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, createTestEvent("e1", 100)))
	require.NoError(t, s.Enqueue(ctx, createTestEvent("e2", 200)))
	require.NoError(t, s.Enqueue(ctx, createTestEvent("e1", 150)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e1", got[0].EventID, "re-enqueue keeps the original position")
	assert.Equal(t, 150, got[0].RawAmountML, "re-enqueue replaces the payload")
	assert.Equal(t, "e2", got[1].EventID)
}

func TestDequeue(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, createTestEvent("e1", 100)))
	require.NoError(t, s.Enqueue(ctx, createTestEvent("e2", 200)))

	require.NoError(t, s.Dequeue(ctx, "e1"))
	require.NoError(t, s.Dequeue(ctx, "missing"), "dequeue of unknown id is a no-op")

	got, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e2", got[0].EventID)
}

func TestMarkFailed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, createTestEvent("e1", 100)))
	require.NoError(t, s.MarkFailed(ctx, "e1", errors.New("connection refused")))
	require.NoError(t, s.MarkFailed(ctx, "e1", errors.New("timeout")))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.Equal(t, "timeout", entries[0].LastError)
	assert.NotEmpty(t, entries[0].EnqueuedAt)
}

func TestClear(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Enqueue(ctx, createTestEvent(id, 100)))
	}
	require.NoError(t, s.Clear(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueue_SurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/queue.db"
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Enqueue(ctx, createTestEvent("durable", 300)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "durable", got[0].EventID)
}

func TestQueue_CanceledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Enqueue(ctx, createTestEvent("e1", 100))
	assert.Error(t, err)
}

func TestEntries_EnqueueOrderInMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	ids := []string{"e3", "e1", "e2"}
	for i, id := range ids {
		require.NoError(t, s.Enqueue(ctx, createTestEvent(id, 100*(i+1))))
	}
	require.NoError(t, s.MarkFailed(ctx, "e1", errors.New("timeout")))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, id := range ids {
		assert.Equal(t, id, entries[i].Event.EventID)
	}
	assert.Less(t, entries[0].Seq, entries[1].Seq)
	assert.Equal(t, 1, entries[1].Attempts)
	assert.Equal(t, "timeout", entries[1].LastError)

	require.NoError(t, s.Dequeue(ctx, "e1"))
	got, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "e3", got[0].EventID)
	assert.Equal(t, "e2", got[1].EventID)
}
