package cmd

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/pagevault/internal/clock"
	"github.com/example/pagevault/internal/fetch"
	"github.com/example/pagevault/internal/metrics"
	"github.com/example/pagevault/internal/schedule"
)

var (
	runDurationDays int
	runMetricsAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the capture schedule until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if len(cfg.TargetURLs) == 0 {
			return fmt.Errorf("no target urls configured; run setup first")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		local, err := openLocal(ctx)
		if err != nil {
			return err
		}
		defer local.Close()
		mirror := openMirror(ctx)
		if mirror != nil {
			defer mirror.Close()
		}

		fetcher := fetch.New(logger)
		defer fetcher.Close()

		if runMetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			go func() {
				logger.Info("metrics listening", zap.String("addr", runMetricsAddr))
				if err := http.ListenAndServe(runMetricsAddr, mux); err != nil {
					logger.Warn("metrics server stopped", zap.Error(err))
				}
			}()
		}

		driver := schedule.New(fetcher, newSaver(local, mirror), clock.NewSystem(), logger)
		driver.Configure(cfg.TargetURLs, cfg.PrimarySlots, cfg.BackupSlots)

		var maxDuration time.Duration
		if runDurationDays > 0 {
			maxDuration = time.Duration(runDurationDays) * 24 * time.Hour
		}

		err = driver.Run(ctx, maxDuration)
		if err != nil && ctx.Err() != nil {
			logger.Info("interrupted, shutting down")
			return nil
		}
		return err
	},
}

func init() {
	runCmd.Flags().IntVar(&runDurationDays, "duration-days", 0, "stop after this many days (0 = run forever)")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (empty = disabled)")
	rootCmd.AddCommand(runCmd)
}
