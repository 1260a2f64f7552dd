package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdthewzrd/chartscan/pkg/config"
)

func TestDisabledClientIsNoOp(t *testing.T) {
	client, err := New(&config.Config{})
	require.NoError(t, err)
	defer client.Close()

	assert.False(t, client.Enabled())

	cache := NewCache(client, "test")
	ctx := context.Background()

	// Every lookup misses and every write succeeds silently.
	require.NoError(t, cache.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

	var dest map[string]int
	hit, err := cache.Get(ctx, "k", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Delete(ctx, "k"))
}
