//go:build integration

package valkey

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddr() string {
	if addr := os.Getenv("GEOANCHOR_VALKEY_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestStore_RoundTrip(t *testing.T) {
	store, err := New(testAddr())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	key := "geoanchor-test-" + uuid.NewString()
	defer func() { _ = store.Delete(ctx, key) }()

	_, ok, err := store.GetString(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := store.HasKey(ctx, key)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, store.SetString(ctx, key, `[{"latitude":37}]`))

	v, ok, err := store.GetString(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"latitude":37}]`, v)

	has, err = store.HasKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, has)
}
