package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageGetMissing(t *testing.T) {
	store := NewStorage(nil)

	ok, err := store.Get("missing", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageRoundtrip(t *testing.T) {
	store := NewStorage(nil)

	type tally struct {
		Emoji string
		Total int
	}

	in := []tally{{Emoji: "👍", Total: 3}, {Emoji: "👎", Total: 1}}
	require.NoError(t, store.Set("poll:123", in))

	var out []tally
	ok, err := store.Get("poll:123", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestStorageDelete(t *testing.T) {
	store := NewStorage(nil)
	require.NoError(t, store.Set("key", "value"))

	ok, err := store.Delete("key")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Delete("key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageKeysAreSorted(t *testing.T) {
	store := NewStorage(nil)
	require.NoError(t, store.Set("b", 2))
	require.NoError(t, store.Set("a", 1))
	require.NoError(t, store.Set("c", 3))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}
