// Package cmd wires the archiver's cobra commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/pagevault/internal/capture"
	"github.com/example/pagevault/internal/clock"
	"github.com/example/pagevault/internal/config"
	"github.com/example/pagevault/internal/identifier"
	"github.com/example/pagevault/internal/logging"
	"github.com/example/pagevault/internal/metrics"
	"github.com/example/pagevault/internal/registry"
	"github.com/example/pagevault/internal/store"
)

var (
	cfgPath string

	cfgStore *config.Store
	cfg      config.Config
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pagevault",
	Short: "Scheduled web page archiver with local and mirrored storage",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfgStore, err = config.Open(cfgPath)
		if err != nil {
			return err
		}
		cfg, err = cfgStore.Snapshot()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Verbosity)
		if err != nil {
			return err
		}
		metrics.Init()
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".env", "path to the dotenv configuration file")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openLocal opens the authoritative store and ensures its schema exists.
func openLocal(ctx context.Context) (*store.Local, error) {
	local, err := store.OpenLocal(ctx, cfg.LocalDBPath, logger)
	if err != nil {
		return nil, err
	}
	if err := local.InitSchema(ctx); err != nil {
		local.Close()
		return nil, err
	}
	return local, nil
}

// openMirror connects to the remote mirror if one is configured. A missing
// or unreachable mirror is not an error; captures proceed local-only.
func openMirror(ctx context.Context) store.Mirror {
	if cfg.RemoteDSN == "" {
		logger.Info("no remote mirror configured")
		return nil
	}
	mirror, err := store.OpenMirror(ctx, cfg.RemoteDSN)
	if err != nil {
		logger.Warn("mirror unavailable, continuing local-only", zap.Error(err))
		return nil
	}
	return mirror
}

// newSaver assembles the capture pipeline over the opened stores.
func newSaver(local *store.Local, mirror store.Mirror) *capture.Saver {
	clk := clock.NewSystem()
	codes := registry.New(cfgStore, logger)
	ids := identifier.New(clk, codes, logger)
	return capture.NewSaver(local, mirror, ids, clk, logger)
}
