package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/weatherdeck/weatherdeck/internal/producer"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Count int           // number of readings to insert
	Span  time.Duration // historical span the readings cover
}

// SeedResult holds the summary of one seeding pass.
type SeedResult struct {
	Seeded int    `json:"seeded"`
	Span   string `json:"span"`
	Engine string `json:"engine"`
	Path   string `json:"path"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Backfill the store with historical readings",
		Long: `Seed inserts synthetic readings spread evenly across a trailing time
span, oldest first, so window queries have history to show before the
stream has run for long.

Seeding appends to whatever is already stored. Run it again to layer
more history on top.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Count, "count", 0, "readings to insert (0 = use config)")
	cmd.Flags().DurationVar(&opts.Span, "span", 0, "trailing span to cover, e.g. 24h (0 = use config)")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	opts.setupLogging()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputSeedError(formatter, ErrCodeConfig, "failed to load configuration", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return outputSeedError(formatter, ErrCodeStore, "failed to open store", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	count := cfg.Producer.SeedCount
	if opts.Count > 0 {
		count = opts.Count
	}
	span := cfg.SeedSpan()
	if opts.Span > 0 {
		span = opts.Span
	}

	formatter.VerboseLog("Seeding %d reading(s) across %s into %s (%s)",
		count, span, cfg.Storage.Path, cfg.Storage.Engine)

	inserted, err := producer.Seed(cmd.Context(), producer.SeedParams{
		Store: st,
		Model: cfg.ProducerModel(),
		Count: count,
		Span:  span,
	})
	if err != nil {
		return outputSeedError(formatter, ErrCodeStore, "seeding failed", err)
	}

	result := SeedResult{
		Seeded: inserted,
		Span:   span.String(),
		Engine: cfg.Storage.Engine,
		Path:   cfg.Storage.Path,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Seeded %d reading(s) covering %s into %s (%s)\n",
		result.Seeded, result.Span, result.Path, result.Engine)
	return nil
}

// outputSeedError outputs a seeding error.
func outputSeedError(formatter *OutputFormatter, code, message string, err error) error {
	var details interface{}
	if err != nil {
		details = err.Error()
	}
	_ = formatter.Error(code, message, details)
	// Setup problems are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, message, err)
}
