package prefs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prefkv/internal/prefs"
	"github.com/roach88/prefkv/internal/table"
	"github.com/roach88/prefkv/internal/testutil"
)

func TestEditor_CommitIsUnsupported(t *testing.T) {
	s, mem := newMemoryStore(t)
	e := s.Edit().PutString("k", "v")

	err := e.Commit()
	assert.ErrorIs(t, err, prefs.ErrUnsupportedOperation)
	assert.Equal(t, 1, e.Len(), "a failed commit leaves the buffer alone")
	assert.Equal(t, 0, mem.Batches())
}

func TestEditor_LastWriteWinsBeforeApply(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()

	res := wait(t, s.Edit().
		PutString("k", "first").
		PutString("k", "second").
		Apply())
	assert.Equal(t, []string{"k"}, res.Persisted)

	v, _, err := mem.Lookup(ctx, testNS, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, mem.Writes(testNS))
}

func TestEditor_ApplyResetsBuffer(t *testing.T) {
	s, mem := newMemoryStore(t)
	e := s.Edit().PutString("a", "1")
	wait(t, e.Apply())
	assert.Equal(t, 0, e.Len())

	res := wait(t, e.Apply())
	assert.Empty(t, res.Persisted)
	assert.Empty(t, res.Unchanged)
	assert.Equal(t, 1, mem.Writes(testNS))
}

func TestEditor_RemoveHidesKeyImmediately(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	wait(t, s.Edit().PutString("k", "v").Apply())

	release := mem.Hold()
	c := s.Edit().Remove("k").Apply()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "removal is visible before it is durable")

	_, stillStored, err := mem.Lookup(ctx, testNS, "k")
	require.NoError(t, err)
	assert.True(t, stillStored)

	release()
	res := wait(t, c)
	assert.Equal(t, []string{"k"}, res.Persisted)

	_, stillStored, err = mem.Lookup(ctx, testNS, "k")
	require.NoError(t, err)
	assert.False(t, stillStored)
}

func TestEditor_RemoveAbsentKeyIsNotAChange(t *testing.T) {
	s, mem := newMemoryStore(t)
	rec := testutil.NewRecorder()
	require.NoError(t, s.RegisterListener(rec))

	res := wait(t, s.Edit().Remove("ghost").Apply())

	assert.Empty(t, res.Persisted)
	assert.True(t, res.OK())
	assert.Equal(t, 0, rec.Len())
	assert.Equal(t, 0, mem.Writes(testNS))
}

func TestEditor_PutThenRemoveInOneEditor(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()

	wait(t, s.Edit().PutString("k", "v").Remove("k").Apply())

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, mem.Writes(testNS))
}

func TestEditor_ClearDropsCacheAndBuffer(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	wait(t, s.Edit().PutString("kept", "durable").Apply())

	e := s.Edit().PutString("staged", "x")
	e.Clear()
	assert.Equal(t, 0, e.Len())

	res := wait(t, e.PutString("after", "y").Apply())
	assert.Equal(t, []string{"after"}, res.Persisted)

	_, ok, err := mem.Lookup(ctx, testNS, "staged")
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := s.GetString(ctx, "kept", "")
	require.NoError(t, err)
	assert.Equal(t, "durable", v, "cleared cache reloads from the backing table")
}

func TestEditor_ClearIsNotDurable(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	wait(t, s.Edit().PutString("a", "1").PutString("b", "2").Apply())

	wait(t, s.Edit().Clear().Apply())

	entries, err := mem.Scan(ctx, testNS)
	require.NoError(t, err)
	assert.Equal(t, []table.Entry{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}, entries)
}

func TestEditor_ClearDuringInFlightCommit(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	release := mem.Hold()

	c := s.Edit().PutString("k", "v").Apply()
	s.Edit().Clear()
	release()
	wait(t, c)

	stored, found, err := mem.Lookup(ctx, testNS, "k")
	require.NoError(t, err)
	require.True(t, found)
	v, err := s.GetString(ctx, "k", "")
	require.NoError(t, err)
	assert.Equal(t, stored, v)
}
