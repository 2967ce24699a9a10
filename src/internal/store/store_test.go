package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lognarrator/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "buffer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AppendUnsentMarkSent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	entries := []core.LogEntry{
		{Time: base, Source: "a", Level: "INFO", Message: "one", Attributes: map[string]string{"k": "v"}},
		{Time: base.Add(time.Second), Source: "b", Message: "two"},
		{Time: base.Add(2 * time.Second), Source: "c", Level: "ERROR", Message: "three"},
	}
	require.NoError(t, s.Append(ctx, entries))

	records, err := s.Unsent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "one", records[0].Entry.Message)
	assert.Equal(t, map[string]string{"k": "v"}, records[0].Entry.Attributes)
	assert.True(t, base.Equal(records[0].Entry.Time))
	assert.Equal(t, "three", records[2].Entry.Message)

	limited, err := s.Unsent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.NoError(t, s.MarkSent(ctx, []int64{records[0].ID, records[1].ID}))

	remaining, err := s.Unsent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, records[2].ID, remaining[0].ID)

	unsent, sent, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unsent)
	assert.Equal(t, int64(2), sent)
}

func TestStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.Append(ctx, []core.LogEntry{
		{Time: old, Source: "a", Message: "old sent"},
		{Time: old, Source: "a", Message: "old unsent"},
		{Time: time.Now(), Source: "a", Message: "new sent"},
	}))

	records, err := s.Unsent(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, s.MarkSent(ctx, []int64{records[0].ID, records[2].ID}))

	deleted, err := s.Cleanup(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	unsent, sent, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unsent)
	assert.Equal(t, int64(1), sent)
}

func TestStore_EmptyOperations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	assert.NoError(t, s.Append(ctx, nil))
	assert.NoError(t, s.MarkSent(ctx, nil))

	records, err := s.Unsent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, records)
}
