package assetcache

import (
	"time"

	"github.com/rs/zerolog"
)

type EvictionReason int

const (
	EvictSize EvictionReason = iota
	EvictExpired
	EvictExplicit
	EvictReplaced
)

func (r EvictionReason) String() string {
	switch r {
	case EvictSize:
		return "size"
	case EvictExpired:
		return "expired"
	case EvictExplicit:
		return "explicit"
	case EvictReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// Observer receives cache events. OnEvict runs with the cache lock held and
// must not call back into the cache.
type Observer interface {
	OnHit()
	OnMiss()
	OnLoad(elapsed time.Duration, err error)
	OnEvict(reason EvictionReason)
}

type nopObserver struct{}

func (nopObserver) OnHit()                      {}
func (nopObserver) OnMiss()                     {}
func (nopObserver) OnLoad(time.Duration, error) {}
func (nopObserver) OnEvict(EvictionReason)      {}

type Stats struct {
	Hits       uint64
	Misses     uint64
	Loads      uint64
	LoadErrors uint64
	Evictions  uint64
	Entries    int
	Weight     int64
}

// HitRate is the share of lookups answered from the cache.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("hits", s.Hits)
	e.Uint64("misses", s.Misses)
	e.Uint64("loads", s.Loads)
	e.Uint64("load_errors", s.LoadErrors)
	e.Uint64("evictions", s.Evictions)
	e.Int("entries", s.Entries)
	e.Int64("weight", s.Weight)
}

type Option func(*Cache)

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Cache) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// WithClock replaces the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}
