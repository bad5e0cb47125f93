package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weatherdeck/weatherdeck/internal/render"
	"github.com/weatherdeck/weatherdeck/internal/scheduler"
	"github.com/weatherdeck/weatherdeck/internal/window"
)

// WindowOptions holds flags for the window command.
type WindowOptions struct {
	*RootOptions
	Lookback int
	Limit    int
}

// NewWindowCommand creates the window command.
func NewWindowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WindowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Query the sliding window once and print it",
		Long: `Window runs one refresh cycle against the store and prints the result:
every reading whose timestamp falls inside the trailing lookback, row
count capped at the limit, oldest first.

This is the same query the dashboard runs each cycle, so it doubles as
a scripting surface with --format json.

Example:
  weatherdeck window --db ./weatherdeck.db
  weatherdeck window --lookback 6 --limit 50 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindow(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Lookback, "lookback", 0, "window lookback in hours (0 = use config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "row cap (0 = use config)")

	return cmd
}

func runWindow(opts *WindowOptions, cmd *cobra.Command) error {
	opts.setupLogging()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputQueryError(formatter, ErrCodeConfig, ExitCommandError, "failed to load configuration", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return outputQueryError(formatter, ErrCodeStore, ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	eng, err := window.New(window.Config{Store: st})
	if err != nil {
		return outputQueryError(formatter, ErrCodeQuery, ExitCommandError, "failed to create query engine", err)
	}

	o := cfg.Options()
	o.AutoRefresh = false
	if opts.Lookback > 0 {
		o.LookbackHours = opts.Lookback
	}
	if opts.Limit > 0 {
		o.Limit = opts.Limit
	}

	formatter.VerboseLog("Querying last %dh, limit %d from %s (%s)",
		o.LookbackHours, o.Limit, cfg.Storage.Path, cfg.Storage.Engine)

	var renderer render.Renderer = render.NewConsole(formatter.Writer)
	if formatter.Format == "json" {
		renderer = render.Func(func(ctx context.Context, s render.Snapshot) error {
			return formatter.Success(s)
		})
	}

	sched, err := scheduler.New(scheduler.Params{
		Engine:   eng,
		Renderer: renderer,
		Options:  scheduler.Static(o),
	})
	if err != nil {
		return outputQueryError(formatter, ErrCodeQuery, ExitCommandError, "failed to create scheduler", err)
	}

	if err := sched.RunOnce(context.Background()); err != nil {
		return outputQueryError(formatter, ErrCodeQuery, ExitFailure, "window query failed", err)
	}
	return nil
}

// outputQueryError outputs a query command error.
func outputQueryError(formatter *OutputFormatter, code string, exitCode int, message string, err error) error {
	var details interface{}
	if err != nil {
		details = err.Error()
	}
	_ = formatter.Error(code, message, details)
	return WrapExitError(exitCode, message, err)
}
