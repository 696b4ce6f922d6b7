package table

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_MatchesBackingContract(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	outcomes, err := m.ApplyBatch(ctx, "prefs", []Op{
		Insert("a", "1"),
		Insert("b", "2"),
		Insert("a", "dup"),
		Update("b", "3"),
		Delete("missing"),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 5)
	assert.True(t, outcomes[0].OK())
	assert.True(t, outcomes[1].OK())
	assert.False(t, outcomes[2].OK(), "duplicate insert must fail")
	assert.True(t, outcomes[3].OK())
	assert.ErrorIs(t, outcomes[4].Err, ErrNoRow)

	v, ok, err := m.Lookup(ctx, "prefs", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	entries, err := m.Scan(ctx, "prefs")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"a", "1"}, {"b", "3"}}, entries)
	assert.Equal(t, 3, m.Writes("prefs"))
}

func TestMemory_DeleteKeepsOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.ApplyBatch(ctx, "prefs", []Op{Insert("a", "1"), Insert("b", "2"), Insert("c", "3")})
	require.NoError(t, err)
	_, err = m.ApplyBatch(ctx, "prefs", []Op{Delete("b")})
	require.NoError(t, err)

	entries, err := m.Scan(ctx, "prefs")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"a", "1"}, {"c", "3"}}, entries)
}

func TestMemory_FailKeys(t *testing.T) {
	m := NewMemory()
	m.FailKeys("prefs", "bad")

	outcomes, err := m.ApplyBatch(context.Background(), "prefs", []Op{Insert("good", "1"), Insert("bad", "2")})
	require.NoError(t, err)
	assert.True(t, outcomes[0].OK())
	assert.ErrorIs(t, outcomes[1].Err, ErrInjected)

	ok, err := m.Exists(context.Background(), "prefs", "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_FailBatches(t *testing.T) {
	m := NewMemory()
	boom := errors.New("disk on fire")
	m.FailBatches(boom)

	_, err := m.ApplyBatch(context.Background(), "prefs", []Op{Insert("k", "v")})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Writes("prefs"))

	m.FailBatches(nil)
	_, err = m.ApplyBatch(context.Background(), "prefs", []Op{Insert("k", "v")})
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Batches())
}

func TestMemory_Hold(t *testing.T) {
	m := NewMemory()
	release := m.Hold()

	done := make(chan struct{})
	go func() {
		_, _ = m.ApplyBatch(context.Background(), "prefs", []Op{Insert("k", "v")})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("ApplyBatch returned while held")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	release() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ApplyBatch did not resume after release")
	}

	ok, err := m.Exists(context.Background(), "prefs", "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_InvalidNamespace(t *testing.T) {
	m := NewMemory()
	err := m.EnsureTable(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}
