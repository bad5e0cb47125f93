package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weatherdeck/weatherdeck/internal/config"
	"github.com/weatherdeck/weatherdeck/internal/store"
	"github.com/weatherdeck/weatherdeck/internal/store/badger"
	"github.com/weatherdeck/weatherdeck/internal/store/sqlite"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Database   string // overrides storage.path from the config
	Engine     string // overrides storage.engine from the config
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidEngines defines the selectable storage backends.
var ValidEngines = []string{config.EngineSQLite, config.EngineBadger}

// NewRootCommand creates the root command for the weatherdeck CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "weatherdeck",
		Short: "weatherdeck - synthetic sensor readings on a live dashboard",
		Long: `weatherdeck ingests a stream of synthetic sensor readings into an
append-only store and serves a dashboard that re-queries a sliding
time window on every refresh cycle.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Engine != "" && !isValidEngine(opts.Engine) {
				return fmt.Errorf("invalid engine %q: must be one of %v", opts.Engine, ValidEngines)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to CUE configuration file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "storage path (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Engine, "engine", "", "storage engine (sqlite|badger, overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewStreamCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewWindowCommand(opts))
	cmd.AddCommand(NewLatestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// isValidEngine checks if the engine is one of the allowed values.
func isValidEngine(engine string) bool {
	for _, e := range ValidEngines {
		if e == engine {
			return true
		}
	}
	return false
}

// setupLogging configures the process-wide logger from the global
// flags. Commands call it once at the top of their run function.
func (o *RootOptions) setupLogging() {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig(o *RootOptions) (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Database != "" {
		cfg.Storage.Path = o.Database
	}
	if o.Engine != "" {
		cfg.Storage.Engine = o.Engine
	}
	return cfg, nil
}

// openStore opens the configured storage backend.
func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Storage.Engine {
	case config.EngineSQLite:
		return sqlite.Open(cfg.Storage.Path)
	case config.EngineBadger:
		return badger.Open(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
	}
}
