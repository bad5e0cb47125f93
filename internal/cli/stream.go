package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/weatherdeck/weatherdeck/internal/producer"
)

// StreamOptions holds flags for the stream command.
type StreamOptions struct {
	*RootOptions
	Interval time.Duration
	Count    int
	Seed     bool
}

// NewStreamCommand creates the stream command.
func NewStreamCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StreamOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Append synthetic readings on a fixed interval",
		Long: `Stream starts the ingestion loop: on every tick one synthetic reading
is drawn from the configured Gaussian model and appended to the store.

The loop runs until interrupted. A failed insert is logged and the
loop tries again on the next tick; a write error never stops the
stream.

Example:
  weatherdeck stream --db ./weatherdeck.db
  weatherdeck stream --interval 2s --readings 100 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStream(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "pause between readings (0 = use config)")
	cmd.Flags().IntVar(&opts.Count, "readings", 0, "stop after this many readings (0 = run until interrupted)")
	cmd.Flags().BoolVar(&opts.Seed, "seed", false, "backfill history before streaming")

	return cmd
}

func runStream(opts *StreamOptions, cmd *cobra.Command) error {
	opts.setupLogging()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
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

	if opts.Seed {
		seeded, err := producer.Seed(cmd.Context(), producer.SeedParams{
			Store: st,
			Model: cfg.ProducerModel(),
			Count: cfg.Producer.SeedCount,
			Span:  cfg.SeedSpan(),
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to seed history", err)
		}
		slog.Info("history seeded", "count", seeded)
	}

	interval := cfg.ProducerInterval()
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	prod, err := producer.New(producer.Params{
		Store:    st,
		Model:    cfg.ProducerModel(),
		Interval: interval,
		Count:    opts.Count,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid stream parameters", err)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Streaming a reading every %s into %s (%s).\n",
		interval, cfg.Storage.Path, cfg.Storage.Engine)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := prod.Run(ctx); err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return WrapExitError(ExitFailure, "stream error", err)
	}

	slog.Info("stream stopped gracefully")
	return nil
}
