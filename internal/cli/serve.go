package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weatherdeck/weatherdeck/internal/config"
	"github.com/weatherdeck/weatherdeck/internal/dashboard"
	"github.com/weatherdeck/weatherdeck/internal/observability"
	"github.com/weatherdeck/weatherdeck/internal/producer"
	"github.com/weatherdeck/weatherdeck/internal/render"
	"github.com/weatherdeck/weatherdeck/internal/scheduler"
	"github.com/weatherdeck/weatherdeck/internal/window"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr            string
	Stream          bool
	AutoRefresh     bool
	Lookback        int
	Limit           int
	RefreshInterval int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and run the refresh loop",
		Long: `Serve starts the refresh scheduler and the dashboard HTTP server.

Every cycle the scheduler re-queries the sliding window and hands the
snapshot to the dashboard, which serves it to polling browsers and
pushes it over websockets. Settings changed through the dashboard
apply from the next cycle.

With --stream the ingestion loop runs in the same process. The badger
backend locks its directory, so this is the only way to stream and
serve one badger store at the same time.

Example:
  weatherdeck serve --db ./weatherdeck.db
  weatherdeck serve --engine badger --db ./weatherdeck.badger --stream`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "run the ingestion loop in this process")
	cmd.Flags().BoolVar(&opts.AutoRefresh, "auto-refresh", true, "refresh on a timer instead of waiting for manual triggers")
	cmd.Flags().IntVar(&opts.Lookback, "lookback", 0, "window lookback in hours (0 = use config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "row cap per window query (0 = use config)")
	cmd.Flags().IntVar(&opts.RefreshInterval, "refresh-interval", 0, "seconds between automatic refreshes (0 = use config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	opts.setupLogging()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	addr := cfg.Dashboard.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	if cmd.Flags().Changed("auto-refresh") {
		cfg.AutoRefresh = opts.AutoRefresh
	}
	if opts.Lookback > 0 {
		cfg.LookbackHours = opts.Lookback
	}
	if opts.Limit > 0 {
		cfg.RowLimit = opts.Limit
	}
	if opts.RefreshInterval > 0 {
		cfg.RefreshIntervalSeconds = opts.RefreshInterval
	}
	// Flag overrides go through the same schema the settings API uses.
	if err := config.ValidateOptions(cfg.Options()); err != nil {
		return WrapExitError(ExitCommandError, "invalid serve options", err)
	}

	slog.Info("opening store", "engine", cfg.Storage.Engine, "path", cfg.Storage.Path)
	st, err := openStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	eng, err := window.New(window.Config{Store: st})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create query engine", err)
	}

	settings := config.NewSettings(cfg)
	metrics := observability.New()

	// The scheduler renders into the dashboard server, and the server
	// needs the scheduler for its refresh endpoint. Late-bind the
	// server through a closure; it is assigned before any cycle runs.
	var srv *dashboard.Server
	sched, err := scheduler.New(scheduler.Params{
		Engine: eng,
		Renderer: render.Func(func(ctx context.Context, s render.Snapshot) error {
			return srv.Render(ctx, s)
		}),
		Options: settings.Options,
		Metrics: metrics,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create scheduler", err)
	}

	srv, err = dashboard.New(dashboard.Params{
		Addr:      addr,
		Settings:  settings,
		Scheduler: sched,
		Engine:    cfg.Storage.Engine,
		Path:      cfg.Storage.Path,
		Metrics:   metrics,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create dashboard server", err)
	}

	var prod *producer.Producer
	if opts.Stream {
		prod, err = producer.New(producer.Params{
			Store:    st,
			Model:    cfg.ProducerModel(),
			Interval: cfg.ProducerInterval(),
			Metrics:  metrics,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid stream parameters", err)
		}
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Dashboard listening on %s\n", displayAddr(addr))
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	// One error lane per loop. The first failure cancels the rest; a
	// signal cancels all of them and every loop returns nil.
	loops := 2
	if prod != nil {
		loops++
	}
	errC := make(chan error, loops)

	go func() { errC <- sched.Run(ctx) }()
	go func() { errC <- srv.Run(ctx) }()
	if prod != nil {
		go func() { errC <- prod.Run(ctx) }()
	}

	var firstErr error
	for i := 0; i < loops; i++ {
		if err := <-errC; err != nil {
			if firstErr == nil {
				firstErr = err
			}
			cancel()
		}
	}

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) && !errors.Is(firstErr, context.DeadlineExceeded) {
		formatter := &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		}
		_ = formatter.Error(ErrCodeServe, "dashboard stopped unexpectedly", firstErr.Error())
		return WrapExitError(ExitFailure, "dashboard stopped unexpectedly", firstErr)
	}

	slog.Info("dashboard stopped gracefully")
	return nil
}

// displayAddr turns a listen address into something clickable.
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
