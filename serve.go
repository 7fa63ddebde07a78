package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/stupid-simple/assets/config"
	"github.com/stupid-simple/assets/fileutils"
	"github.com/stupid-simple/assets/metrics"
	"github.com/stupid-simple/assets/scheduler"
)

const (
	shutdownTimeout = 15 * time.Second
	// Requests started on a replaced site may still read from its bundles.
	siteDrainDelay = 30 * time.Second
)

func serveCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	cfgPath := args.Serve.Config
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	collector, err := metrics.NewCollector()
	if err != nil {
		return err
	}

	initial, err := buildSite(cfg, collector, logger)
	if err != nil {
		return fmt.Errorf("could not build mounts: %w", err)
	}
	switcher := &siteSwitch{}
	switcher.swap(initial)

	scheduler := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger: logger,
	})
	addMaintenanceJobs(scheduler, cfg, initial, collector, logger)
	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	if args.Serve.WatchInterval > 0 {
		interval := time.Duration(args.Serve.WatchInterval) * time.Second
		startConfigFileWatcher(ctx, cfgPath, logger, interval, func(next *config.Config) {
			if next.Listen != cfg.Listen {
				logger.Warn().Str("listen", next.Listen).Msg("listen address changes need a restart")
			}
			nextSite, err := buildSite(next, collector, logger)
			if err != nil {
				logger.Error().Err(err).Msg("could not apply new config, keeping the current one")
				return
			}
			previous := switcher.swap(nextSite)
			scheduler.RemoveJobs()
			addMaintenanceJobs(scheduler, next, nextSite, collector, logger)
			retireSite(previous, nextSite, collector, logger)
			logger.Info().Int("mounts", len(nextSite.mounts)).Msg("config reloaded")
		})
	}

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           withRequestLogging(logger, switcher),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    int(cfg.MaxHeaderBytes.Size),
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("listen", cfg.Listen).Msg("serving assets")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("could not shut down cleanly")
		}
	}

	switcher.current.Load().close(logger)
	return nil
}

func withRequestLogging(logger zerolog.Logger, next http.Handler) http.Handler {
	return chi.Chain(
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("req_id", "Request-Id"),
		hlog.RemoteAddrHandler("ip"),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Debug().
				Str("method", r.Method).
				Stringer("url", r.URL).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("request")
		}),
	).Handler(next)
}

func addMaintenanceJobs(s *scheduler.Scheduler, cfg *config.Config, st *site, collector *metrics.Collector, logger zerolog.Logger) {
	for _, m := range st.mounts {
		job := scheduler.CacheMaintenance{
			Mount:  m.prefix,
			Cache:  m.handler.Cache(),
			Report: collector.SetCacheStats,
			Logger: logger,
		}
		if err := s.AddJob("cache maintenance "+m.prefix, cfg.MaintenanceSchedule, job); err != nil {
			logger.Error().Err(err).Str("mount", m.prefix).Msg("could not schedule cache maintenance")
		}
	}
}

// retireSite closes previous once in-flight requests had time to finish
// and drops the metrics of mounts that are gone.
func retireSite(previous, next *site, collector *metrics.Collector, logger zerolog.Logger) {
	kept := next.prefixes()
	for prefix := range previous.prefixes() {
		if !kept[prefix] {
			collector.Forget(prefix)
		}
	}
	time.AfterFunc(siteDrainDelay, func() {
		previous.close(logger)
	})
}

func startConfigFileWatcher(ctx context.Context, cfgPath string, logger zerolog.Logger, interval time.Duration, onChanged func(cfg *config.Config)) {
	logger.Info().Str("path", cfgPath).Dur("interval", interval).Msg("watching config file for changes")
	ticker := time.NewTicker(interval)
	watcher, err := fileutils.WatchFile(ctx, cfgPath, when(ctx, ticker.C), func(err error) {
		logger.Error().Err(err).Msg("could not watch config file")
	})
	if err != nil {
		ticker.Stop()
		logger.Error().Err(err).Msg("could not watch config file")
		return
	}

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher:
				if !ok {
					return
				}
				logger.Info().Str("path", cfgPath).Msg("config file changed, reloading")

				cfg, err := config.LoadFromFile(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("could not load config")
					break
				}

				onChanged(cfg)
			}
		}
	}()
}

func when[T any](ctx context.Context, ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
