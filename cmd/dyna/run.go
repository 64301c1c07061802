package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/dyna/internal/adapters/ipc"
	"github.com/felixgeelhaar/dyna/internal/config"
	"github.com/felixgeelhaar/dyna/internal/domain/updater"
	mcptools "github.com/felixgeelhaar/dyna/internal/mcp"
	"github.com/felixgeelhaar/dyna/internal/ports"
	"github.com/felixgeelhaar/dyna/internal/tui"
)

const shutdownTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the update daemon",
	Long: `Run the update daemon until interrupted.

The plugin registry is scanned shortly after start. Every update interval,
each participating plugin is checked against its repository's manifest and
replaced when a newer version is published.

Examples:
  dyna run                              # Run in the foreground
  dyna run --once                       # Run a single cycle and print a report
  dyna run --tui                        # Show a progress indicator
  dyna run --interval 600               # Check every ten minutes
  dyna run --debug-listen 127.0.0.1:7777  # Serve debug tools for developers`,
	RunE: runRun,
}

var (
	runTUI           bool
	runOnce          bool
	runInterval      int
	runDebugListen   string
	runMetricsListen string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show a progress indicator")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run one update cycle and exit")
	runCmd.Flags().IntVar(&runInterval, "interval", 0, "seconds between update cycles (overrides updateInterval)")
	runCmd.Flags().StringVar(&runDebugListen, "debug-listen", "", "serve debug tools over HTTP when a developer build is detected")
	runCmd.Flags().StringVar(&runMetricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
}

func runRun(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	cfg, err := loadConfig(flags, func(cfg *config.Config) {
		if flags.Changed("interval") {
			cfg.UpdateInterval = runInterval
		}
		if flags.Changed("debug-listen") {
			cfg.Debug.Listen = runDebugListen
		}
		if flags.Changed("metrics-listen") {
			cfg.Metrics.Listen = runMetricsListen
		}
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return runDaemon(ctx, cfg, runOptions{
		tui:    runTUI,
		once:   runOnce,
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	})
}

type runOptions struct {
	tui    bool
	once   bool
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	clock  clockwork.Clock
	// started is called once the daemon is wired, before any cycle runs.
	started func(*daemon)
	// attached is called with the progress indicator in TUI mode.
	attached func(*tui.Indicator)
}

// runDaemon runs the updater until ctx ends or, with once set, for a single
// cycle.
func runDaemon(ctx context.Context, cfg config.Config, opts runOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dopts := daemonOptions{logOut: opts.errOut, out: opts.out, clock: opts.clock}

	var indicator *tui.Indicator
	if opts.tui {
		indicator = tui.NewIndicator(ctx, opts.in, opts.out)
		dopts.sink = indicator.Sink()
		// Console logs would tear the full-screen view.
		dopts.logOut = nil
		go func() {
			_ = indicator.Run()
			cancel()
		}()
		// Every return path hands the terminal back before the caller prints.
		defer indicator.Stop()
		if opts.attached != nil {
			opts.attached(indicator)
		}
	}

	d, err := newDaemon(cfg, dopts)
	if err != nil {
		return err
	}
	if opts.started != nil {
		opts.started(d)
	}

	d.serveMetrics(ctx)
	if cfg.Debug.Listen != "" {
		d.service.OnDebugInstalled(func(surface *updater.DebugSurface) {
			d.serveDebug(ctx, surface)
		})
	}

	if !opts.once && !cfg.Control.Disabled {
		srv := ipc.NewServer(ipc.ServerConfig{
			SocketPath: cfg.Control.Socket,
			Version:    version,
			Logger:     d.logger.With(ports.F("component", "control")),
		}, controller{Service: d.service, stop: cancel})
		if err := srv.Start(); err != nil {
			return errors.Join(fmt.Errorf("starting control socket: %w", err), d.shutdown(context.Background()))
		}
		defer func() { _ = srv.Stop() }()
	}

	if opts.once {
		report, cycleErr := d.service.RunCycle(ctx)
		if indicator != nil {
			indicator.Stop()
		}
		if report != nil {
			_, _ = fmt.Fprintln(opts.out, tui.RenderReport(report))
		}
		return errors.Join(cycleErr, d.shutdown(context.Background()))
	}

	if err := d.service.Init(ctx); err != nil {
		return errors.Join(err, d.shutdown(context.Background()))
	}
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	return d.shutdown(shutdownCtx)
}

// controller exposes the service on the control socket. Stop ends the run.
type controller struct {
	*updater.Service
	stop context.CancelFunc
}

func (c controller) Stop(context.Context) error {
	c.stop()
	return nil
}

// serveDebug exposes the debug surface as MCP tools until ctx ends.
func (d *daemon) serveDebug(ctx context.Context, surface *updater.DebugSurface) {
	addr := d.cfg.Debug.Listen
	srv := mcptools.NewDebugServer(surface, version)
	d.logger.Warn(ctx, "serving debug tools", ports.F("addr", addr))
	go func() {
		if err := mcp.ServeHTTP(ctx, srv, addr); err != nil && ctx.Err() == nil {
			d.logger.Error(ctx, "debug server stopped", ports.F("addr", addr), ports.Err(err))
		}
	}()
}
