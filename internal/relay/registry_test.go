package relay

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("c1", "alice"))
	err := r.Register("c1", "bob")
	assert.ErrorIs(t, err, ErrDuplicateConnection)

	// The original registration is untouched.
	conn, err := r.Lookup("c1")
	require.NoError(t, err)
	assert.Equal(t, "alice", conn.Identity)
}

func TestRegistrySetRoomReturnsPrevious(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("c1", "alice"))

	prev, err := r.SetRoom("c1", "dev")
	require.NoError(t, err)
	assert.Equal(t, "", prev)

	prev, err = r.SetRoom("c1", "ops")
	require.NoError(t, err)
	assert.Equal(t, "dev", prev)

	conn, err := r.Lookup("c1")
	require.NoError(t, err)
	assert.Equal(t, "ops", conn.Room)
}

func TestRegistrySetRoomUnknownConnection(t *testing.T) {
	r := NewRegistry()
	_, err := r.SetRoom("ghost", "dev")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryLookupUnknownConnection(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("c1", "alice"))
	_, err := r.SetRoom("c1", "dev")
	require.NoError(t, err)

	conn, ok := r.Remove("c1")
	require.True(t, ok)
	assert.Equal(t, "dev", conn.Room)

	_, ok = r.Remove("c1")
	assert.False(t, ok)
}

func TestRegistryLookupReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("c1", "alice"))

	conn, err := r.Lookup("c1")
	require.NoError(t, err)
	conn.Room = "hijacked"

	fresh, err := r.Lookup("c1")
	require.NoError(t, err)
	assert.Equal(t, "", fresh.Room)
}

func TestRegistryConcurrentSetRoomAndRemove(t *testing.T) {
	r := NewRegistry()
	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("c%d", i)
		require.NoError(t, r.Register(id, "u"))

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.SetRoom(id, "dev")
		}()
		go func() {
			defer wg.Done()
			r.Remove(id)
		}()
	}
	wg.Wait()

	// Every connection is either gone or consistently present.
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("c%d", i)
		if conn, err := r.Lookup(id); err == nil {
			assert.Equal(t, id, conn.ID)
		}
	}
}
