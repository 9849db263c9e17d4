package memory

import (
	"context"
	"testing"
	"time"

	"tradewages/common/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct{ body string }

func (p payload) MarshalBinary() ([]byte, error) { return []byte(p.body), nil }

func (p *payload) UnmarshalBinary(data []byte) error {
	p.body = string(data)
	return nil
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := New(cache.Options{DefaultTTL: time.Minute, Size: 4})

	require.NoError(t, c.Set(ctx, "bls:batch:1", payload{body: "series"}, 0))

	var got payload
	require.NoError(t, c.Get(ctx, "bls:batch:1", &got))
	assert.Equal(t, "series", got.body)

	var s string
	require.NoError(t, c.Get(ctx, "bls:batch:1", &s))
	assert.Equal(t, "series", s)

	assert.ErrorIs(t, c.Get(ctx, "missing", &got), cache.ErrNotFound)
	assert.ErrorIs(t, c.Set(ctx, "bad", 42, 0), cache.ErrInvalidValue)
	assert.ErrorIs(t, c.Get(ctx, "bls:batch:1", new(int)), cache.ErrInvalidValue)
}

func TestCache_EntryTTL(t *testing.T) {
	ctx := context.Background()
	c := New(cache.Options{DefaultTTL: time.Hour})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	now = now.Add(2 * time.Minute)

	var s string
	assert.ErrorIs(t, c.Get(ctx, "k", &s), cache.ErrNotFound)
}

func TestCache_DeleteClearClose(t *testing.T) {
	ctx := context.Background()
	c := New(cache.DefaultOptions())
	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))

	require.NoError(t, c.Delete(ctx, "a"))
	var s string
	assert.ErrorIs(t, c.Get(ctx, "a", &s), cache.ErrNotFound)

	require.NoError(t, c.Clear(ctx))
	assert.ErrorIs(t, c.Get(ctx, "b", &s), cache.ErrNotFound)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Set(ctx, "c", "3", 0), cache.ErrClosed)
}

func TestKey(t *testing.T) {
	key, err := cache.Key("bls", "2023", "2024")
	require.NoError(t, err)
	assert.Equal(t, "bls:2023:2024", key)

	_, err = cache.Key("bls", "")
	assert.ErrorIs(t, err, cache.ErrInvalidKey)
}
