package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/pagevault/internal/capture"
	"github.com/example/pagevault/internal/config"
	"github.com/example/pagevault/internal/fetch"
)

var captureCmd = &cobra.Command{
	Use:   "capture <url>",
	Short: "Capture a single page now",
	Long: `Capture fetches the page immediately, outside the schedule. Manual
captures alternate between the T and M category characters and always use
run slot 99.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		ctx := cmd.Context()

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

		content, err := fetcher.Page(ctx, url, true)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", url, err)
		}

		categoryChar := byte(capture.CategoryTest)
		if cfg.LastManualCategory == "T" {
			categoryChar = capture.CategoryManual
		}

		id, err := newSaver(local, mirror).Save(ctx, url, content, categoryChar, capture.ManualRunSlot)
		if err != nil {
			return err
		}

		if _, err := cfgStore.Set(config.KeyLastManualCategory, string(categoryChar)); err != nil {
			logger.Warn("could not persist manual category", zap.Error(err))
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)
}
