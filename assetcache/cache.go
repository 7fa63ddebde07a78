// Package assetcache is a loading cache for assets, bounded by total
// weight, entry count and age. Concurrent lookups of a missing key share
// a single load.
package assetcache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/stupid-simple/assets/asset"
)

var ErrLoaderPanic = errors.New("asset loader panicked")

// Loader produces the asset for a key on a cache miss.
type Loader interface {
	Load(ctx context.Context, key string) (asset.Asset, error)
}

type LoaderFunc func(ctx context.Context, key string) (asset.Asset, error)

func (f LoaderFunc) Load(ctx context.Context, key string) (asset.Asset, error) {
	return f(ctx, key)
}

// Options bound the cache. A zero value disables that bound.
type Options struct {
	MaxWeight         int64
	MaxEntries        int
	ExpireAfterAccess time.Duration
	ExpireAfterWrite  time.Duration
	InitialCapacity   int
}

type entry struct {
	key        string
	value      asset.Asset
	weight     int64
	writtenAt  time.Time
	accessedAt time.Time
}

type Cache struct {
	loader   Loader
	opts     Options
	logger   zerolog.Logger
	observer Observer
	now      func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	items  map[string]*list.Element
	lru    *list.List // front is most recently used
	weight int64
	// loading holds keys with a load in flight, false once the key was
	// invalidated during that load.
	loading map[string]bool
	stats   Stats
}

func New(loader Loader, opts Options, options ...Option) *Cache {
	c := &Cache{
		loader:   loader,
		opts:     opts,
		logger:   zerolog.Nop(),
		observer: nopObserver{},
		now:      time.Now,
		items:    make(map[string]*list.Element, opts.InitialCapacity),
		lru:      list.New(),
		loading:  make(map[string]bool),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Get returns the cached asset for key, loading it on a miss. Failed loads
// are not cached, the next Get retries.
//
// When ctx is done before the load finishes Get returns ctx.Err(), the load
// itself keeps running for the other waiters.
func (c *Cache) Get(ctx context.Context, key string) (asset.Asset, error) {
	if a, ok := c.lookup(key); ok {
		c.observer.OnHit()
		return a, nil
	}
	c.observer.OnMiss()

	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(asset.Asset), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, key string) (asset.Asset, error) {
	// A flight that finished between our miss and this one may have
	// filled the entry already.
	c.mu.Lock()
	if elem, ok := c.items[key]; ok && !c.expired(elem.Value.(*entry), c.now()) {
		c.mu.Unlock()
		return elem.Value.(*entry).value, nil
	}
	c.loading[key] = true
	c.mu.Unlock()

	start := time.Now()
	a, err := c.callLoader(ctx, key)
	elapsed := time.Since(start)
	c.observer.OnLoad(elapsed, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	valid := c.loading[key]
	delete(c.loading, key)
	c.stats.Loads++
	if err != nil {
		c.stats.LoadErrors++
		c.logger.Debug().Err(err).Str("key", key).Dur("elapsed", elapsed).Msg("asset load failed")
		return nil, err
	}
	if !valid {
		// Invalidated while loading, hand the value out without caching it.
		return a, nil
	}
	c.insert(key, a)
	c.logger.Debug().Str("key", key).Dur("elapsed", elapsed).Object("asset", a).Msg("asset loaded")
	return a, nil
}

// callLoader turns a panicking loader into an error. A panic inside a
// shared flight would otherwise take down the process.
func (c *Cache) callLoader(ctx context.Context, key string) (a asset.Asset, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrLoaderPanic, rec)
		}
	}()
	return c.loader.Load(ctx, key)
}

func (c *Cache) lookup(key string) (asset.Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e := elem.Value.(*entry)
	now := c.now()
	if c.expired(e, now) {
		c.remove(elem, EvictExpired)
		c.stats.Misses++
		return nil, false
	}
	e.accessedAt = now
	c.lru.MoveToFront(elem)
	c.stats.Hits++
	return e.value, true
}

func (c *Cache) insert(key string, a asset.Asset) {
	if elem, ok := c.items[key]; ok {
		c.remove(elem, EvictReplaced)
	}

	now := c.now()
	e := &entry{
		key:        key,
		value:      a,
		weight:     a.Weight(),
		writtenAt:  now,
		accessedAt: now,
	}
	c.items[key] = c.lru.PushFront(e)
	c.weight += e.weight

	for c.overLimit() {
		c.remove(c.lru.Back(), EvictSize)
	}
}

func (c *Cache) overLimit() bool {
	if c.lru.Len() == 0 {
		return false
	}
	if c.opts.MaxWeight > 0 && c.weight > c.opts.MaxWeight {
		return true
	}
	return c.opts.MaxEntries > 0 && c.lru.Len() > c.opts.MaxEntries
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	if c.opts.ExpireAfterWrite > 0 && now.Sub(e.writtenAt) >= c.opts.ExpireAfterWrite {
		return true
	}
	return c.opts.ExpireAfterAccess > 0 && now.Sub(e.accessedAt) >= c.opts.ExpireAfterAccess
}

// remove drops elem from the cache. Callers holding the asset keep using it.
func (c *Cache) remove(elem *list.Element, reason EvictionReason) {
	e := c.lru.Remove(elem).(*entry)
	delete(c.items, e.key)
	c.weight -= e.weight
	if reason != EvictReplaced {
		c.stats.Evictions++
	}
	c.observer.OnEvict(reason)
	c.logger.Trace().Str("key", e.key).Stringer("reason", reason).Msg("asset evicted")
}

// Invalidate discards the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.loading[key]; ok {
		c.loading[key] = false
	}
	if elem, ok := c.items[key]; ok {
		c.remove(elem, EvictExplicit)
	}
}

// InvalidateAll discards every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.loading {
		c.loading[key] = false
	}
	for c.lru.Len() > 0 {
		c.remove(c.lru.Back(), EvictExplicit)
	}
}

// CleanUp drops expired entries. Expired entries are otherwise only
// dropped when they are looked up.
func (c *Cache) CleanUp() int {
	if c.opts.ExpireAfterAccess <= 0 && c.opts.ExpireAfterWrite <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*entry), now) {
			c.remove(elem, EvictExpired)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Weight is the summed weight of all entries, as measured at insertion.
func (c *Cache) Weight() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = c.lru.Len()
	s.Weight = c.weight
	return s
}
