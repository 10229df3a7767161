package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/pagevault/internal/store"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the capture tables locally and, if configured, remotely",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		local, err := openLocal(ctx)
		if err != nil {
			return err
		}
		defer local.Close()
		logger.Info("local schema ready", zap.String("path", cfg.LocalDBPath))

		mirror := openMirror(ctx)
		if mirror == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "local schema ready; no mirror configured")
			return nil
		}
		defer mirror.Close()

		if pg, ok := mirror.(*store.PostgresMirror); ok {
			if err := pg.EnsureSchema(ctx); err != nil {
				return err
			}
			logger.Info("mirror schema ready")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "local and mirror schemas ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
