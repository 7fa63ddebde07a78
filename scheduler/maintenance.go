package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/assets/assetcache"
)

type MaintainedCache interface {
	CleanUp() int
	Stats() assetcache.Stats
}

// CacheMaintenance drops expired entries of one mount's cache and reports
// its size afterwards.
type CacheMaintenance struct {
	Mount  string
	Cache  MaintainedCache
	Report func(mount string, stats assetcache.Stats)
	Logger zerolog.Logger
}

func (m CacheMaintenance) Run() {
	start := time.Now()
	removed := m.Cache.CleanUp()
	stats := m.Cache.Stats()
	if m.Report != nil {
		m.Report(m.Mount, stats)
	}

	event := m.Logger.Debug()
	if removed > 0 {
		event = m.Logger.Info()
	}
	event.
		Str("mount", m.Mount).
		Int("expired", removed).
		Object("stats", stats).
		Dur("took", time.Since(start)).
		Msg("cache maintenance done")
}
