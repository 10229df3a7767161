package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config file:      %s\n", cfgStore.Path())
		fmt.Fprintf(out, "target urls:      %s\n", strings.Join(cfg.TargetURLs, ", "))
		fmt.Fprintf(out, "primary times:    %s\n", strings.Join(cfg.PrimarySlots, ", "))
		fmt.Fprintf(out, "backup times:     %s\n", strings.Join(cfg.BackupSlots, ", "))
		fmt.Fprintf(out, "local db:         %s\n", cfg.LocalDBPath)
		fmt.Fprintf(out, "remote dsn:       %s\n", maskDSN(cfg.RemoteDSN))
		fmt.Fprintf(out, "source codes:     %d assigned\n", len(cfg.SourceCodes))
		fmt.Fprintf(out, "manual category:  %s\n", cfg.LastManualCategory)
		fmt.Fprintf(out, "verbosity:        %s\n", cfg.Verbosity)
		return nil
	},
}

// maskDSN hides credentials embedded in a connection string.
func maskDSN(dsn string) string {
	if dsn == "" {
		return "(not configured)"
	}
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}
