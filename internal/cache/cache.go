package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"

	"github.com/avstrong/hotelbooking/internal/logger"
)

type Config struct {
	L             *logger.Logger
	MemcachedHost string
	LocalSize     int64
	TTL           time.Duration
}

// Cache is a two level read-through cache: an in-process LRU in front of an
// optional memcached. Values are stored as JSON. Cache failures are logged
// and reported as misses.
type Cache struct {
	l     *logger.Logger
	local *ccache.Cache[[]byte]
	mc    *memcache.Client
	ttl   time.Duration
}

func New(conf Config) *Cache {
	size := conf.LocalSize
	if size <= 0 {
		size = 1000
	}

	ttl := conf.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute //nolint:gomnd
	}

	//nolint:exhaustruct
	c := &Cache{
		l:     conf.L,
		local: ccache.New(ccache.Configure[[]byte]().MaxSize(size)),
		ttl:   ttl,
	}

	if conf.MemcachedHost != "" {
		c.mc = memcache.New(conf.MemcachedHost)
		conf.L.LogInfo("Cache is backed by memcached at %s", conf.MemcachedHost)
	}

	return c
}

func (c *Cache) Get(_ context.Context, key string, dst any) bool {
	raw, ok := c.lookup(key)
	if !ok {
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		c.l.LogErrorf("Could not decode cached value of %s: %v", key, err)

		return false
	}

	return true
}

func (c *Cache) lookup(key string) ([]byte, bool) {
	if item := c.local.Get(key); item != nil && !item.Expired() {
		return item.Value(), true
	}

	if c.mc == nil {
		return nil, false
	}

	item, err := c.mc.Get(key)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			c.l.LogErrorf("Could not read %s from memcached: %v", key, err)
		}

		return nil, false
	}

	c.local.Set(key, item.Value, c.ttl)

	return item.Value, true
}

func (c *Cache) Set(_ context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.l.LogErrorf("Could not encode %s for cache: %v", key, err)

		return
	}

	c.local.Set(key, raw, c.ttl)

	if c.mc == nil {
		return
	}

	//nolint:exhaustruct
	if err := c.mc.Set(&memcache.Item{Key: key, Value: raw, Expiration: int32(c.ttl.Seconds())}); err != nil {
		c.l.LogErrorf("Could not write %s to memcached: %v", key, err)
	}
}

func (c *Cache) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		c.local.Delete(key)

		if c.mc == nil {
			continue
		}

		if err := c.mc.Delete(key); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			c.l.LogErrorf("Could not delete %s from memcached: %v", key, err)
		}
	}
}

func (c *Cache) Close() {
	c.local.Stop()
}
