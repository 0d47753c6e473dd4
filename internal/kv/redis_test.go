package kv

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "memcached://localhost:11211")
	assert.Error(t, err)
}

// Runs against a real server when REDIS_URL is set.
func TestRedisStore_TakeConsumesOnce(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	key := "test:oauth_state:" + uuid.NewString()
	require.NoError(t, s.Set(ctx, key, []byte("1"), time.Minute))

	val, err := s.Take(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)

	_, err = s.Take(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Ping(ctx))
}
