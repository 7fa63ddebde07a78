package resolve_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/assets/asset"
	"github.com/stupid-simple/assets/resolve"
)

var modTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func resources() fstest.MapFS {
	return fstest.MapFS{
		"static/css/app.css":     {Data: []byte("bundled css"), ModTime: modTime},
		"static/a.txt":           {Data: []byte("a"), ModTime: modTime},
		"static/docs/index.html": {Data: []byte("docs index"), ModTime: modTime},
		"static/empty/.keep":     {Data: nil, ModTime: modTime},
		"static/index.html":      {Data: []byte("root index"), ModTime: modTime},
		"static/embedded.txt":    {Data: []byte("no mod time")},
	}
}

func newResolver(t *testing.T, index string, overrides ...resolve.Rule) *resolve.Resolver {
	t.Helper()
	r, err := resolve.New(resolve.Options{
		Resources:    resources(),
		ResourceRoot: "/static/",
		MountPrefix:  "/mount/",
		IndexFile:    index,
		Overrides:    overrides,
		Logger:       zerolog.New(zerolog.NewTestWriter(t)),
	})
	require.NoError(t, err)
	return r
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestNormalizeMountPrefix(t *testing.T) {
	assert.Equal(t, "/", resolve.NormalizeMountPrefix(""))
	assert.Equal(t, "/", resolve.NormalizeMountPrefix("/"))
	assert.Equal(t, "/mount", resolve.NormalizeMountPrefix("/mount//"))
}

func TestNew_Invalid(t *testing.T) {
	_, err := resolve.New(resolve.Options{})
	assert.Error(t, err)

	_, err = resolve.New(resolve.Options{Resources: resources(), IndexFile: "a/index.html"})
	assert.Error(t, err)

	_, err = resolve.New(resolve.Options{Resources: resources(), Overrides: []resolve.Rule{{Prefix: "/css"}}})
	assert.Error(t, err)
}

func TestResolve_Base(t *testing.T) {
	r := newResolver(t, "index.html")

	tests := []struct {
		key  string
		want string
	}{
		{key: "/mount/a.txt", want: "static/a.txt"},
		{key: "/mount//css/app.css", want: "static/css/app.css"},
		{key: "/mount/docs", want: "static/docs/index.html"},
		{key: "/mount/docs/", want: "static/docs/index.html"},
		{key: "/mount", want: "static/index.html"},
		{key: "/mount/", want: "static/index.html"},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			loc, err := r.Resolve(tc.key)
			require.NoError(t, err)
			assert.False(t, loc.Override)
			assert.Equal(t, tc.want, loc.Path)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := newResolver(t, "index.html")

	for _, key := range []string{"/mount/missing.txt", "/mount/empty", "/mount/../secret", "/mount/css/../../x"} {
		t.Run(key, func(t *testing.T) {
			_, err := r.Resolve(key)
			assert.ErrorIs(t, err, resolve.ErrNotFound)
		})
	}
}

func TestResolve_DirectoryWithoutIndex(t *testing.T) {
	r := newResolver(t, "")

	_, err := r.Resolve("/mount/docs")
	assert.ErrorIs(t, err, resolve.ErrNotFound)
}

func TestResolve_RootMount(t *testing.T) {
	res, err := resolve.New(resolve.Options{Resources: resources(), ResourceRoot: "static"})
	require.NoError(t, err)
	assert.Equal(t, "/", res.MountPrefix())

	loc, err := res.Resolve("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "static/a.txt", loc.Path)
}

func TestResolve_OutsideMountPanics(t *testing.T) {
	r := newResolver(t, "index.html")

	assert.Panics(t, func() {
		_, _ = r.Resolve("/other/a.txt")
	})
}

func TestResolve_OverridePriority(t *testing.T) {
	local := filepath.Join(t.TempDir(), "css")
	writeFile(t, filepath.Join(local, "app.css"), "local css")

	r := newResolver(t, "index.html", resolve.Rule{Prefix: "/css", Path: local})

	loc, err := r.Resolve("/mount/css/app.css")
	require.NoError(t, err)
	assert.True(t, loc.Override)
	assert.Equal(t, filepath.Join(local, "app.css"), loc.Path)
}

func TestResolve_OverrideExactMatch(t *testing.T) {
	file := filepath.Join(t.TempDir(), "robots.txt")
	writeFile(t, file, "User-agent: *")

	r := newResolver(t, "index.html", resolve.Rule{Prefix: "robots.txt", Path: file})

	loc, err := r.Resolve("/mount/robots.txt")
	require.NoError(t, err)
	assert.True(t, loc.Override)
	assert.Equal(t, file, loc.Path)
}

func TestResolve_OverrideFallsThrough(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	writeFile(t, filepath.Join(first, "other.css"), "first")
	writeFile(t, filepath.Join(second, "app.css"), "second")

	r := newResolver(t, "index.html",
		resolve.Rule{Prefix: "/css", Path: first},
		resolve.Rule{Prefix: "/css", Path: second},
	)

	loc, err := r.Resolve("/mount/css/app.css")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(second, "app.css"), loc.Path)

	// No override file, bundled resource wins.
	loc, err = r.Resolve("/mount/a.txt")
	require.NoError(t, err)
	assert.False(t, loc.Override)
}

func TestResolve_FirstOverrideWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first")
	second := filepath.Join(dir, "second")
	writeFile(t, filepath.Join(first, "app.css"), "first")
	writeFile(t, filepath.Join(second, "app.css"), "second")

	r := newResolver(t, "index.html",
		resolve.Rule{Prefix: "/css", Path: first},
		resolve.Rule{Prefix: "/css", Path: second},
	)

	loc, err := r.Resolve("/mount/css/app.css")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(first, "app.css"), loc.Path)
}

func TestResolve_OverrideDirectory(t *testing.T) {
	local := t.TempDir()
	writeFile(t, filepath.Join(local, "site", "index.html"), "local index")
	require.NoError(t, os.MkdirAll(filepath.Join(local, "bare"), 0700))

	r := newResolver(t, "index.html", resolve.Rule{Prefix: "/", Path: local})

	loc, err := r.Resolve("/mount/site")
	require.NoError(t, err)
	assert.True(t, loc.Override)
	assert.Equal(t, filepath.Join(local, "site", "index.html"), loc.Path)

	// A directory without index is not a match, the bundle is consulted.
	_, err = r.Resolve("/mount/bare")
	assert.ErrorIs(t, err, resolve.ErrNotFound)

	noIndex := newResolver(t, "", resolve.Rule{Prefix: "/", Path: local})
	_, err = noIndex.Resolve("/mount/site")
	assert.ErrorIs(t, err, resolve.ErrNotFound)
}

func TestResolve_OverrideTraversal(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "css")
	writeFile(t, filepath.Join(local, "app.css"), "local")
	writeFile(t, filepath.Join(dir, "secret.txt"), "secret")

	r := newResolver(t, "index.html", resolve.Rule{Prefix: "/css", Path: local})

	loc, err := r.Resolve("/mount/css/../secret.txt")
	if err == nil {
		assert.NotEqual(t, filepath.Join(dir, "secret.txt"), loc.Path)
	}
}

func TestLoad_Static(t *testing.T) {
	r := newResolver(t, "index.html")

	a, err := r.Load(context.Background(), "/mount/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), a.Content())
	assert.Equal(t, asset.QuoteETag(asset.Fingerprint([]byte("a"))), a.ETag())
	assert.True(t, modTime.Equal(a.LastModified()))
}

func TestLoad_NoModTime(t *testing.T) {
	r := newResolver(t, "index.html")
	before := time.Now().Truncate(time.Second)

	a, err := r.Load(context.Background(), "/mount/embedded.txt")
	require.NoError(t, err)
	assert.False(t, a.LastModified().Before(before))
}

func TestLoad_Override(t *testing.T) {
	local := filepath.Join(t.TempDir(), "css")
	path := filepath.Join(local, "app.css")
	writeFile(t, path, "v1")
	require.NoError(t, os.Chtimes(path, modTime, modTime))

	r := newResolver(t, "index.html", resolve.Rule{Prefix: "/css", Path: local})

	a, err := r.Load(context.Background(), "/mount/css/app.css")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), a.Content())

	writeFile(t, path, "v2 longer")
	later := modTime.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	snap := a.Snapshot()
	assert.Equal(t, []byte("v2 longer"), snap.Content)
	assert.True(t, later.Equal(snap.LastModified))
}

func TestLoad_NotFound(t *testing.T) {
	r := newResolver(t, "index.html")

	_, err := r.Load(context.Background(), "/mount/missing.txt")
	assert.True(t, errors.Is(err, resolve.ErrNotFound))
}

func TestLoad_Canceled(t *testing.T) {
	r := newResolver(t, "index.html")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Load(ctx, "/mount/a.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
