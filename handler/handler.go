// Package handler serves assets of one mount over HTTP with conditional
// GET support.
package handler

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/assets/asset"
	"github.com/stupid-simple/assets/assetcache"
	"github.com/stupid-simple/assets/resolve"
)

const (
	DefaultIndexFile   = "index.html"
	DefaultCharset     = "utf-8"
	DefaultContentType = "text/html; charset=utf-8"
)

type Options struct {
	Resources    fs.FS
	ResourceRoot string
	MountPrefix  string
	IndexFile    string // empty disables directory index files
	Overrides    []resolve.Rule
	Cache        assetcache.Options

	// DefaultCharset is appended to media types without a charset, empty to never append.
	DefaultCharset string
	// DefaultContentType is used for unknown extensions.
	DefaultContentType string
	// MimeTypes maps extensions, without the dot, to media types ahead of the system table.
	MimeTypes map[string]string
}

// Observer is told about every response.
type Observer interface {
	ObserveResponse(mount string, status int, elapsed time.Duration)
}

type Option func(*Handler)

func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func WithObserver(observer Observer) Option {
	return func(h *Handler) {
		h.observer = observer
	}
}

func WithCacheObserver(observer assetcache.Observer) Option {
	return func(h *Handler) {
		h.cacheObserver = observer
	}
}

type Handler struct {
	resolver           *resolve.Resolver
	cache              *assetcache.Cache
	mountPrefix        string
	defaultCharset     string
	defaultContentType string
	mimeTypes          map[string]string

	logger        zerolog.Logger
	errLogger     zerolog.Logger
	observer      Observer
	cacheObserver assetcache.Observer
}

func New(opts Options, options ...Option) (*Handler, error) {
	h := &Handler{
		logger:             zerolog.Nop(),
		defaultCharset:     opts.DefaultCharset,
		defaultContentType: opts.DefaultContentType,
		mimeTypes:          builtinMimeTypes(),
	}
	for _, o := range options {
		o(h)
	}
	if h.defaultContentType == "" {
		h.defaultContentType = DefaultContentType
	}
	for ext, mediaType := range opts.MimeTypes {
		h.mimeTypes[normalizeExt(ext)] = mediaType
	}

	h.mountPrefix = resolve.NormalizeMountPrefix(opts.MountPrefix)
	h.logger = h.logger.With().Str("mount", h.mountPrefix).Logger()
	h.errLogger = h.logger.Sample(&zerolog.BurstSampler{
		Burst:  5,
		Period: time.Second,
	})

	resolver, err := resolve.New(resolve.Options{
		Resources:    opts.Resources,
		ResourceRoot: opts.ResourceRoot,
		MountPrefix:  h.mountPrefix,
		IndexFile:    opts.IndexFile,
		Overrides:    opts.Overrides,
		Logger:       h.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", h.mountPrefix, err)
	}
	h.resolver = resolver

	cacheOptions := []assetcache.Option{assetcache.WithLogger(h.logger)}
	if h.cacheObserver != nil {
		cacheOptions = append(cacheOptions, assetcache.WithObserver(h.cacheObserver))
	}
	h.cache = assetcache.New(resolver, opts.Cache, cacheOptions...)
	return h, nil
}

func (h *Handler) MountPrefix() string {
	return h.mountPrefix
}

func (h *Handler) Cache() *assetcache.Cache {
	return h.cache
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.serve(w, r)
	if h.observer != nil {
		h.observer.ObserveResponse(h.mountPrefix, status, time.Since(start))
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) (status int) {
	// sent is the status once headers went out, after that the response
	// can only be cut short.
	sent := 0
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().Str("path", r.URL.Path).Interface("panic", rec).Msg("recovered from panic while serving asset")
			if sent != 0 {
				status = sent
				return
			}
			status = h.notFound(w)
		}
	}()

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return http.StatusMethodNotAllowed
	}

	key := r.URL.Path
	if !h.inMount(key) {
		h.logger.Debug().Str("path", key).Msg("request outside of mount")
		return h.notFound(w)
	}

	a, err := h.cache.Get(r.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, resolve.ErrNotFound):
			h.logger.Debug().Str("path", key).Msg("asset not found")
		case errors.Is(err, assetcache.ErrLoaderPanic):
			h.logger.Error().Err(err).Str("path", key).Msg("asset loader panicked")
		default:
			h.errLogger.Warn().Err(err).Str("path", key).Msg("could not load asset")
		}
		return h.notFound(w)
	}

	// Validators and body come from the same generation of content.
	snap := a.Snapshot()
	header := w.Header()
	header.Set("ETag", snap.ETag())
	header.Set("Last-Modified", snap.LastModified.UTC().Format(http.TimeFormat))

	if notModified(r, snap) {
		sent = http.StatusNotModified
		w.WriteHeader(sent)
		return sent
	}

	header.Set("Content-Type", h.contentType(key))
	header.Set("Content-Length", strconv.Itoa(len(snap.Content)))
	sent = http.StatusOK
	w.WriteHeader(sent)
	if r.Method == http.MethodHead {
		return http.StatusOK
	}
	if _, err := w.Write(snap.Content); err != nil {
		h.logger.Debug().Err(err).Str("path", key).Msg("could not write asset")
	}
	return http.StatusOK
}

func (h *Handler) inMount(key string) bool {
	if h.mountPrefix == "/" {
		return strings.HasPrefix(key, "/")
	}
	return key == h.mountPrefix || strings.HasPrefix(key, h.mountPrefix+"/")
}

func (h *Handler) notFound(w http.ResponseWriter) int {
	w.Header().Del("ETag")
	w.Header().Del("Last-Modified")
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	return http.StatusNotFound
}

// notModified reports a match on If-None-Match, falling back to
// If-Modified-Since.
func notModified(r *http.Request, snap asset.Snapshot) bool {
	if r.Header.Get("If-None-Match") == snap.ETag() {
		return true
	}
	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}
	t, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return snap.LastModified.Unix() <= t.Unix()
}
