package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/assets/assetcache"
	"github.com/stupid-simple/assets/metrics"
)

func TestObserveResponse(t *testing.T) {
	c, err := metrics.NewCollector()
	require.NoError(t, err)

	c.ObserveResponse("/a", http.StatusOK, time.Millisecond)
	c.ObserveResponse("/a", http.StatusOK, time.Millisecond)
	c.ObserveResponse("/a", http.StatusNotModified, time.Millisecond)
	c.ObserveResponse("/b", http.StatusNotFound, time.Millisecond)

	expected := `
# HELP assets_http_responses_total Responses sent, by mount and status code.
# TYPE assets_http_responses_total counter
assets_http_responses_total{code="200",mount="/a"} 2
assets_http_responses_total{code="304",mount="/a"} 1
assets_http_responses_total{code="404",mount="/b"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "assets_http_responses_total"))
}

func TestCacheObserver(t *testing.T) {
	c, err := metrics.NewCollector()
	require.NoError(t, err)

	obs := c.CacheObserver("/a")
	obs.OnHit()
	obs.OnMiss()
	obs.OnMiss()
	obs.OnLoad(time.Millisecond, nil)
	obs.OnLoad(time.Millisecond, errors.New("missing"))
	obs.OnEvict(assetcache.EvictSize)
	obs.OnEvict(assetcache.EvictReplaced)
	c.SetCacheStats("/a", assetcache.Stats{Entries: 3, Weight: 1024})

	expected := `
# HELP assets_cache_lookups_total Cache lookups, by mount and result (hit or miss).
# TYPE assets_cache_lookups_total counter
assets_cache_lookups_total{mount="/a",result="hit"} 1
assets_cache_lookups_total{mount="/a",result="miss"} 2
# HELP assets_cache_loads_total Asset loads, by mount and result (success or error).
# TYPE assets_cache_loads_total counter
assets_cache_loads_total{mount="/a",result="error"} 1
assets_cache_loads_total{mount="/a",result="success"} 1
# HELP assets_cache_evictions_total Entries removed from the cache, by mount and reason.
# TYPE assets_cache_evictions_total counter
assets_cache_evictions_total{mount="/a",reason="size"} 1
# HELP assets_cache_entries Entries in the cache, by mount.
# TYPE assets_cache_entries gauge
assets_cache_entries{mount="/a"} 3
# HELP assets_cache_weight_bytes Summed content size of the cached entries, by mount.
# TYPE assets_cache_weight_bytes gauge
assets_cache_weight_bytes{mount="/a"} 1024
`
	assert.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"assets_cache_lookups_total",
		"assets_cache_loads_total",
		"assets_cache_evictions_total",
		"assets_cache_entries",
		"assets_cache_weight_bytes",
	))
}

func TestForget(t *testing.T) {
	c, err := metrics.NewCollector()
	require.NoError(t, err)

	c.ObserveResponse("/a", http.StatusOK, time.Millisecond)
	c.ObserveResponse("/b", http.StatusOK, time.Millisecond)
	c.Forget("/a")

	count, err := testutil.GatherAndCount(c.Registry(), "assets_http_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandler(t *testing.T) {
	c, err := metrics.NewCollector()
	require.NoError(t, err)
	c.ObserveResponse("/a", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `assets_http_responses_total{code="200",mount="/a"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
