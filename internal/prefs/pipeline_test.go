package prefs_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prefkv/internal/prefs"
	"github.com/roach88/prefkv/internal/table"
	"github.com/roach88/prefkv/internal/testutil"
)

func TestPipeline_InsertUpdateUnchanged(t *testing.T) {
	s, mem := newMemoryStore(t)
	rec := testutil.NewRecorder()
	require.NoError(t, s.RegisterListener(rec))

	res := wait(t, s.Edit().PutString("k", "1").Apply())
	assert.Equal(t, []string{"k"}, res.Persisted)

	res = wait(t, s.Edit().PutString("k", "1").Apply())
	assert.Empty(t, res.Persisted)
	assert.Equal(t, []string{"k"}, res.Unchanged)

	res = wait(t, s.Edit().PutString("k", "2").Apply())
	assert.Equal(t, []string{"k"}, res.Persisted)

	assert.Equal(t, 2, mem.Writes(testNS), "one write per distinct value")
	assert.Equal(t, 2, rec.Count("k"))
}

func TestPipeline_OneBatchPerTask(t *testing.T) {
	s, mem := newMemoryStore(t)
	wait(t, s.Edit().PutString("x", "0").Apply())
	before := mem.Batches()

	wait(t, s.Edit().PutString("a", "1").PutString("x", "2").Remove("x").PutString("b", "3").Apply())

	assert.Equal(t, before+1, mem.Batches())
}

func TestPipeline_NotifiesInKeyOrder(t *testing.T) {
	s, _ := newMemoryStore(t)
	rec := testutil.NewRecorder()
	require.NoError(t, s.RegisterListener(rec))

	wait(t, s.Edit().PutString("c", "3").PutString("a", "1").PutString("b", "2").Apply())

	assert.Equal(t, []string{"a", "b", "c"}, rec.Keys())
	assert.Equal(t, testutil.Notification{Namespace: testNS, Key: "a"}, rec.Notifications()[0])
}

func TestPipeline_ConcurrentEditors(t *testing.T) {
	s, _ := newMemoryStore(t)
	ctx := context.Background()
	rec := testutil.NewRecorder()
	require.NoError(t, s.RegisterListener(rec))

	var wg sync.WaitGroup
	for _, keys := range [][]int{{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, {11, 12, 13, 14, 15, 16, 17, 18, 19}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := s.Edit()
			for _, n := range keys {
				e.PutInt(fmt.Sprintf("k%d", n), int32(n))
			}
			e.Apply()
		}()
	}
	wg.Wait()
	require.NoError(t, s.Sync(ctx))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 19)
	assert.Equal(t, 19, rec.Len())
	for k := range all {
		assert.Equal(t, 1, rec.Count(k), "key %s", k)
	}
}

func TestPipeline_PartialFailure(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	rec := testutil.NewRecorder()
	require.NoError(t, s.RegisterListener(rec))
	mem.FailKeys(testNS, "bad")

	res := wait(t, s.Edit().PutString("good", "1").PutString("bad", "2").Apply())

	assert.Equal(t, []string{"good"}, res.Persisted)
	assert.Equal(t, []string{"bad"}, res.FailedKeys())
	assert.False(t, res.OK())

	err := res.Failed["bad"]
	assert.True(t, prefs.IsPersistenceError(err))
	assert.ErrorIs(t, err, table.ErrInjected)
	var pe *prefs.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, table.OpInsert, pe.Op)

	assert.Equal(t, []string{"good"}, rec.Keys())

	_, ok, err := s.Get(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok, "failed edits are evicted from the cache")
}

func TestPipeline_BatchFailure(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	rec := testutil.NewRecorder()
	require.NoError(t, s.RegisterListener(rec))
	wait(t, s.Edit().PutString("a", "old").Apply())
	rec.Reset()

	boom := errors.New("disk full")
	mem.FailBatches(boom)
	res := wait(t, s.Edit().PutString("a", "new").PutString("b", "1").Apply())

	assert.Empty(t, res.Persisted)
	assert.Equal(t, []string{"a", "b"}, res.FailedKeys())
	assert.ErrorIs(t, res.Failed["a"], boom)
	assert.Equal(t, 0, rec.Len())

	v, err := s.GetString(ctx, "a", "")
	require.NoError(t, err)
	assert.Equal(t, "old", v, "reads fall back to the durable value")

	mem.FailBatches(nil)
	res = wait(t, s.Edit().PutString("b", "1").Apply())
	assert.Equal(t, []string{"b"}, res.Persisted)
}

func TestPipeline_LaterCommitWins(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	release := mem.Hold()

	first := s.Edit().PutString("k", "1").Apply()
	second := s.Edit().PutString("k", "2").Apply()
	release()
	wait(t, first)
	wait(t, second)

	v, err := s.GetString(ctx, "k", "")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	stored, _, err := mem.Lookup(ctx, testNS, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", stored)
}

func TestPipeline_CommitDoesNotClobberNewerEdit(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	release := mem.Hold()

	c := s.Edit().PutString("k", "committed").Apply()
	staged := s.Edit().PutString("k", "staged")
	release()
	wait(t, c)

	v, err := s.GetString(ctx, "k", "")
	require.NoError(t, err)
	assert.Equal(t, "staged", v)

	wait(t, staged.Apply())
	stored, _, err := mem.Lookup(ctx, testNS, "k")
	require.NoError(t, err)
	assert.Equal(t, "staged", stored)
}

func TestPipeline_ApplyOrderDecidesFinalValue(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()

	a := s.Edit().PutString("k", "a")
	b := s.Edit().PutString("k", "b")
	wait(t, b.Apply())
	wait(t, a.Apply())

	stored, found, err := mem.Lookup(ctx, testNS, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", stored)

	v, err := s.GetString(ctx, "k", "")
	require.NoError(t, err)
	assert.Equal(t, stored, v)
}

func TestPipeline_LaterAppliedRemoveWins(t *testing.T) {
	s, mem := newMemoryStore(t)
	ctx := context.Background()
	wait(t, s.Edit().PutString("k", "old").Apply())

	rm := s.Edit().Remove("k")
	put := s.Edit().PutString("k", "new")
	wait(t, put.Apply())
	wait(t, rm.Apply())

	_, found, err := mem.Lookup(ctx, testNS, "k")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err := s.Contains(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	v, err := s.GetString(ctx, "k", "missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", v)
}

func TestPipeline_ListenerPanicIsIsolated(t *testing.T) {
	s, _ := newMemoryStore(t)
	bad := &testutil.Panicker{}
	rec := testutil.NewRecorder()
	require.NoError(t, s.RegisterListener(bad))
	require.NoError(t, s.RegisterListener(rec))

	wait(t, s.Edit().PutString("a", "1").PutString("b", "2").Apply())
	wait(t, s.Edit().PutString("c", "3").Apply())

	assert.Equal(t, 3, bad.Calls())
	assert.Equal(t, []string{"a", "b", "c"}, rec.Keys())
}
