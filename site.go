package main

import (
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/stupid-simple/assets/bundle"
	"github.com/stupid-simple/assets/config"
	"github.com/stupid-simple/assets/handler"
	"github.com/stupid-simple/assets/metrics"
	"github.com/stupid-simple/assets/resolve"
)

// site is the routing built from one version of the config.
type site struct {
	router http.Handler
	mounts []*mount
}

type mount struct {
	prefix  string
	bundle  *bundle.Bundle
	handler *handler.Handler
}

func buildSite(cfg *config.Config, collector *metrics.Collector, logger zerolog.Logger) (*site, error) {
	s := &site{}
	router := chi.NewRouter()

	for _, m := range cfg.Mounts {
		built, err := buildMount(m, collector, logger)
		if err != nil {
			s.close(logger)
			return nil, err
		}
		s.mounts = append(s.mounts, built)
		router.Mount(built.prefix, built.handler)
		logger.Info().Object("mount", m).Object("bundle", built.bundle).Msg("mounted assets")
	}

	if cfg.MetricsPath != "" {
		router.Method(http.MethodGet, cfg.MetricsPath, collector.Handler())
	}
	s.router = router
	return s, nil
}

func buildMount(m config.Mount, collector *metrics.Collector, logger zerolog.Logger) (*mount, error) {
	prefix := resolve.NormalizeMountPrefix(m.MountPrefix)
	cacheOptions, err := m.CacheOptions()
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", prefix, err)
	}

	b, err := bundle.Open(m.Bundle)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", prefix, err)
	}

	h, err := handler.New(handler.Options{
		Resources:          b,
		ResourceRoot:       m.ResourceRoot,
		MountPrefix:        prefix,
		IndexFile:          m.Index(),
		Overrides:          m.Rules(),
		Cache:              cacheOptions,
		DefaultCharset:     m.Charset(),
		DefaultContentType: m.DefaultContentType,
		MimeTypes:          m.MimeTypes,
	},
		handler.WithLogger(logger),
		handler.WithObserver(collector),
		handler.WithCacheObserver(collector.CacheObserver(prefix)),
	)
	if err != nil {
		return nil, errors.Join(err, b.Close())
	}
	return &mount{prefix: prefix, bundle: b, handler: h}, nil
}

func (s *site) prefixes() map[string]bool {
	prefixes := make(map[string]bool, len(s.mounts))
	for _, m := range s.mounts {
		prefixes[m.prefix] = true
	}
	return prefixes
}

func (s *site) close(logger zerolog.Logger) {
	for _, m := range s.mounts {
		m.handler.Cache().InvalidateAll()
		if err := m.bundle.Close(); err != nil {
			logger.Warn().Err(err).Str("mount", m.prefix).Msg("could not close bundle")
		}
	}
}

// siteSwitch serves from the current site and lets a reload replace it
// without stopping the listener.
type siteSwitch struct {
	current atomic.Pointer[site]
}

func (s *siteSwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.current.Load().router.ServeHTTP(w, r)
}

// swap installs next and returns the site it replaced.
func (s *siteSwitch) swap(next *site) *site {
	return s.current.Swap(next)
}
