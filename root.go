package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tidewatch/tidewatch/internal/api"
	"github.com/tidewatch/tidewatch/internal/config"
	"github.com/tidewatch/tidewatch/internal/kvstore"
	"github.com/tidewatch/tidewatch/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagDataDir    string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
var resolvedCfg *config.Config

// newRootCmd builds the fully-assembled root command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tidewatch",
		Short:   "Local-first vessel trip tracking client",
		Long:    "A local-first client for float plans, check-ins, and marine-condition monitoring.\nFully usable offline; local edits reconcile with the backend when connectivity returns.",
		Version: version,
		// Silence Cobra's default error/usage printing — main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "local data directory")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newBoatCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLogoutCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores it in resolvedCfg for use by subcommands.
func loadConfig() error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		Verbose:    flagVerbose,
		Quiet:      flagQuiet,
	}

	if flagDataDir != "" {
		cli.DataDir = &flagDataDir
	}

	cfg, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger from the resolved config: text
// handler on a terminal, JSON otherwise so piped output stays parseable.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	switch resolvedCfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// app bundles the wired engine components shared by the commands.
type app struct {
	logger *slog.Logger
	kv     *kvstore.Store
	store  *store.Store
	client *api.Client
}

// openApp opens the durable store, rehydrates the snapshot, and wires the
// API client. Callers must defer a.close().
func openApp() (*app, error) {
	logger := buildLogger()

	if err := os.MkdirAll(resolvedCfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	kv, err := kvstore.Open(filepath.Join(resolvedCfg.DataDir, "tidewatch.db"), logger)
	if err != nil {
		return nil, err
	}

	st := store.New(kv, logger)

	if err := st.Rehydrate(cmdContext()); err != nil {
		kv.Close()
		return nil, fmt.Errorf("rehydrating snapshot: %w", err)
	}

	return &app{
		logger: logger,
		kv:     kv,
		store:  st,
		client: api.New(resolvedCfg.APIBaseURL, resolvedCfg.APIToken, logger),
	}, nil
}

// close flushes the snapshot and closes the durable store.
func (a *app) close() {
	a.store.Close()

	if err := a.kv.Close(); err != nil {
		a.logger.Warn("closing kv store", slog.String("error", err.Error()))
	}
}
