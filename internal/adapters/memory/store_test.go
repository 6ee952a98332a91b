package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSetHas(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, ok, err := s.GetString(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetString(ctx, "k", "v1"))
	require.NoError(t, s.SetString(ctx, "k", "v2"))

	v, ok, err := s.GetString(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	has, err := s.HasKey(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_CancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.SetString(ctx, "k", "v"), context.Canceled)
	_, _, err := s.GetString(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Concurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SetString(ctx, "k", "v")
			_, _, _ = s.GetString(ctx, "k")
		}()
	}
	wg.Wait()

	has, err := s.HasKey(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)
}
