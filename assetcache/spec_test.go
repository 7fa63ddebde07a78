package assetcache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/assets/assetcache"
)

func TestParseSpec(t *testing.T) {
	tests := []struct {
		spec string
		want assetcache.Options
	}{
		{spec: "", want: assetcache.Options{}},
		{spec: assetcache.DefaultSpec, want: assetcache.Options{MaxEntries: 100}},
		{spec: "maximumWeight=64MB", want: assetcache.Options{MaxWeight: 64 * 1024 * 1024}},
		{spec: "maximumWeight=1024", want: assetcache.Options{MaxWeight: 1024}},
		{
			spec: "maximumSize=10, expireAfterAccess=10m,expireAfterWrite=7d,initialCapacity=4",
			want: assetcache.Options{
				MaxEntries:        10,
				ExpireAfterAccess: 10 * time.Minute,
				ExpireAfterWrite:  7 * 24 * time.Hour,
				InitialCapacity:   4,
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			got, err := assetcache.ParseSpec(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSpec_Invalid(t *testing.T) {
	for _, spec := range []string{
		"maximumSize",
		"maximumSize=",
		"maximumSize=-1",
		"maximumSize=ten",
		"maximumWeight=lots",
		"expireAfterAccess=soon",
		"expireAfterWrite=-1d",
		"maximumSize=1,maximumSize=2",
		"weakKeys=true",
	} {
		t.Run(spec, func(t *testing.T) {
			_, err := assetcache.ParseSpec(spec)
			assert.ErrorIs(t, err, assetcache.ErrInvalidSpec)
		})
	}
}

func TestOptions_String(t *testing.T) {
	opts := assetcache.Options{
		MaxWeight:         64 * 1024 * 1024,
		MaxEntries:        10,
		ExpireAfterAccess: time.Hour,
	}

	parsed, err := assetcache.ParseSpec(opts.String())
	require.NoError(t, err)
	assert.Equal(t, opts, parsed)
}
