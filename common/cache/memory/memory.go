// Package memory is an in-process cache.Cache backed by an expiring LRU,
// used when no Redis address is configured.
package memory

import (
	"context"
	"sync/atomic"
	"time"

	"tradewages/common/cache"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type entry struct {
	data    []byte
	expires time.Time
}

type Cache struct {
	lru    *expirable.LRU[string, entry]
	ttl    time.Duration
	closed atomic.Bool
	now    func() time.Time
}

func New(opts cache.Options) *Cache {
	size := opts.Size
	if size <= 0 {
		size = cache.DefaultOptions().Size
	}
	ttl := opts.DefaultTTL
	if ttl == 0 {
		ttl = cache.DefaultOptions().DefaultTTL
	}
	return &Cache{
		lru: expirable.NewLRU[string, entry](size, nil, ttl),
		ttl: ttl,
		now: time.Now,
	}
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}
	data, err := cache.Encode(value)
	if err != nil {
		return err
	}
	if ttl == 0 || ttl > c.ttl {
		ttl = c.ttl
	}
	c.lru.Add(key, entry{data: data, expires: c.now().Add(ttl)})
	return nil
}

func (c *Cache) Get(ctx context.Context, key string, value interface{}) error {
	if c.closed.Load() {
		return cache.ErrClosed
	}
	e, ok := c.lru.Get(key)
	if !ok {
		return cache.ErrNotFound
	}
	if !c.now().Before(e.expires) {
		c.lru.Remove(key)
		return cache.ErrNotFound
	}
	return cache.Decode(e.data, value)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

func (c *Cache) Clear(ctx context.Context) error {
	c.lru.Purge()
	return nil
}

func (c *Cache) Close() error {
	c.closed.Store(true)
	c.lru.Purge()
	return nil
}
