package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/dyna/internal/adapters/command"
	"github.com/felixgeelhaar/dyna/internal/adapters/host"
	"github.com/felixgeelhaar/dyna/internal/adapters/logging"
	"github.com/felixgeelhaar/dyna/internal/adapters/metrics"
	"github.com/felixgeelhaar/dyna/internal/adapters/progress"
	"github.com/felixgeelhaar/dyna/internal/adapters/restart"
	"github.com/felixgeelhaar/dyna/internal/config"
	"github.com/felixgeelhaar/dyna/internal/domain/remote"
	"github.com/felixgeelhaar/dyna/internal/domain/updater"
	"github.com/felixgeelhaar/dyna/internal/ports"
)

// daemonOptions are the parts of the wiring that depend on how dyna runs.
type daemonOptions struct {
	// logOut receives console logs when no log file is configured.
	logOut io.Writer
	// out receives the restart banner.
	out io.Writer
	// sink receives progress next to the log sink. Optional.
	sink ports.ProgressSink
	// clock drives the scheduler. Defaults to the real clock.
	clock clockwork.Clock
}

// daemon holds the wired updater and the adapters it owns.
type daemon struct {
	cfg      config.Config
	logger   ports.Logger
	registry *host.DirRegistry
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	service  *updater.Service

	closers []func() error
}

func newDaemon(cfg config.Config, opts daemonOptions) (*daemon, error) {
	d := &daemon{cfg: cfg}

	logger, err := d.newLogger(opts.logOut)
	if err != nil {
		return nil, err
	}
	d.logger = logger

	d.registry, err = host.NewDirRegistry(cfg.Registry.Path, logger.With(ports.F("component", "registry")))
	if err != nil {
		d.close()
		return nil, fmt.Errorf("opening plugin registry: %w", err)
	}

	reg := prometheus.NewRegistry()
	d.metrics = metrics.New(reg)
	d.gatherer = reg

	client := &http.Client{Transport: d.metrics.RoundTripper(http.DefaultTransport)}
	sink := progress.NewFanout(progress.NewLogSink(logger), opts.sink)

	fetcher := remote.NewManifestFetcher(cfg.Fetcher(userAgent()),
		remote.WithHTTPClient(client),
		remote.WithResolver(cfg.Resolver()),
		remote.WithFetcherLogger(logger.With(ports.F("component", "fetcher"))),
	)
	downloader := remote.NewDownloader(
		remote.WithDownloadClient(client),
		remote.WithDownloadTimeout(cfg.Download.Timeout.Std()),
		remote.WithMaxArtifactSize(cfg.Download.MaxBytes),
		remote.WithDownloaderLogger(logger.With(ports.F("component", "downloader"))),
		remote.WithSink(sink),
	)

	reloader, err := newReloader(cfg, logger)
	if err != nil {
		d.close()
		return nil, err
	}

	bannerOut := opts.out
	if bannerOut == nil {
		bannerOut = io.Discard
	}

	d.service, err = updater.NewService(cfg.Updater(), updater.Dependencies{
		Host:      d.registry,
		Manifests: fetcher,
		Artifacts: downloader,
		Resolver:  cfg.Resolver(),
		Notifier: restart.NewConsoleNotifier(
			restart.WithWriter(bannerOut),
			restart.WithGrace(cfg.Restart.Grace.Std()),
		),
		Reloader: reloader,
		Sink:     sink,
		Metrics:  d.metrics,
		Logger:   logger,
		Clock:    opts.clock,
	})
	if err != nil {
		d.close()
		return nil, fmt.Errorf("creating updater: %w", err)
	}
	return d, nil
}

func (d *daemon) newLogger(out io.Writer) (ports.Logger, error) {
	if fc, ok := d.cfg.LogFile(); ok {
		fl, err := logging.NewFileLogger(fc)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		d.closers = append(d.closers, fl.Close)
		return fl, nil
	}
	if out == nil {
		return logging.NewNopLogger(), nil
	}
	return logging.NewConsoleLogger(
		logging.WithOutput(out),
		logging.WithLevel(d.cfg.LogLevel()),
		logging.WithJSONFormat(d.cfg.Log.JSON),
	), nil
}

func newReloader(cfg config.Config, logger ports.Logger) (ports.Reloader, error) {
	if cfg.Restart.Command == "" {
		return restart.NewLogReloader(logger), nil
	}
	r, err := restart.NewCommandReloader(command.NewRealRunner(), cfg.Restart.Command, logger)
	if err != nil {
		return nil, &config.UserError{
			Code:       config.ErrCodeConfigInvalid,
			Message:    "invalid restart command",
			Context:    "restart.command",
			Suggestion: "Quote arguments that contain spaces.",
			Underlying: err,
		}
	}
	return r, nil
}

// shutdown stops the service and releases the adapters.
func (d *daemon) shutdown(ctx context.Context) error {
	err := d.service.Shutdown(ctx)
	return errors.Join(err, d.close())
}

func (d *daemon) close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}

// serveHTTP runs srv until ctx ends.
func serveHTTP(ctx context.Context, srv *http.Server, logger ports.Logger) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, "http server stopped", ports.F("addr", srv.Addr), ports.Err(err))
	}
}

// serveMetrics exposes the Prometheus endpoint until ctx ends.
func (d *daemon) serveMetrics(ctx context.Context) {
	addr := d.cfg.Metrics.Listen
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(d.gatherer))
	d.logger.Info(ctx, "serving metrics", ports.F("addr", addr))
	go serveHTTP(ctx, &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}, d.logger)
}
