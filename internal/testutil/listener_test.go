package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prefkv/internal/prefs"
	"github.com/roach88/prefkv/internal/table"
)

func openStore(t *testing.T) *prefs.Store {
	t.Helper()
	reg := prefs.NewRegistry(table.NewMemory(), prefs.WithLogger(DiscardLogger()))
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	s, err := reg.Store(context.Background(), "settings")
	require.NoError(t, err)
	return s
}

func TestRecorder_RecordsInOrder(t *testing.T) {
	s := openStore(t)
	r := NewRecorder()

	r.OnPreferenceChanged(s, "b")
	r.OnPreferenceChanged(s, "a")
	r.OnPreferenceChanged(s, "b")

	assert.Equal(t, []string{"b", "a", "b"}, r.Keys())
	assert.Equal(t, 2, r.Count("b"))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, Notification{Namespace: "settings", Key: "b"}, r.Notifications()[0])

	r.Reset()
	assert.Equal(t, 0, r.Len())
}

func TestRecorder_ConcurrentCallbacks(t *testing.T) {
	s := openStore(t)
	r := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.OnPreferenceChanged(s, "k")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Count("k"))
}

func TestRecorder_AsStoreListener(t *testing.T) {
	s := openStore(t)
	r := NewRecorder()
	require.NoError(t, s.RegisterListener(r))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.Edit().PutString("theme", "dark").Apply().Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"theme"}, r.Keys())
}

func TestPanicker_CountsAndPanics(t *testing.T) {
	s := openStore(t)
	p := &Panicker{}

	assert.Panics(t, func() { p.OnPreferenceChanged(s, "k") })
	assert.Equal(t, 1, p.Calls())
}
