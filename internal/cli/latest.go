package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/weatherdeck/weatherdeck/internal/reading"
	"github.com/weatherdeck/weatherdeck/internal/render"
	"github.com/weatherdeck/weatherdeck/internal/store"
	"github.com/weatherdeck/weatherdeck/internal/window"
)

// LatestOptions holds flags for the latest command.
type LatestOptions struct {
	*RootOptions
}

// LatestResult holds the newest reading plus the reference values its
// deltas are measured against.
type LatestResult struct {
	Reading    *reading.Reading `json:"reading,omitempty"`
	References []reading.Field  `json:"references"`
}

// NewLatestCommand creates the latest command.
func NewLatestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LatestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the most recent reading",
		Long: `Latest prints the newest stored reading with its delta against the
reference values (20 °C, 50 %, 1013 hPa). An empty store is not an
error; it prints a notice and exits 0.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLatest(opts, cmd)
		},
	}

	return cmd
}

func runLatest(opts *LatestOptions, cmd *cobra.Command) error {
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

	refs := reading.References.Fields()

	latest, err := eng.Latest(context.Background())
	if errors.Is(err, store.ErrNoReadings) {
		if formatter.Format == "json" {
			return formatter.Success(LatestResult{References: refs})
		}
		fmt.Fprintln(formatter.Writer,
			`No readings stored yet. Backfill history with "weatherdeck seed" or start "weatherdeck stream".`)
		return nil
	}
	if err != nil {
		return outputQueryError(formatter, ErrCodeQuery, ExitFailure, "latest query failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(LatestResult{Reading: &latest, References: refs})
	}

	fmt.Fprintln(formatter.Writer, render.FormatLatest(latest, refs))
	return nil
}
