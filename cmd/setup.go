package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/pagevault/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure targets, times, and storage",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()

		prompts := []struct {
			key     string
			label   string
			current string
		}{
			{config.KeyTargetURLs, "Target URLs (comma-separated)", strings.Join(cfg.TargetURLs, ",")},
			{config.KeyPrimarySlots, "Primary capture times (HH:MM, comma-separated)", strings.Join(cfg.PrimarySlots, ",")},
			{config.KeyBackupSlots, "Backup capture times (HH:MM, comma-separated)", strings.Join(cfg.BackupSlots, ",")},
			{config.KeyLocalDBPath, "Local database path", cfg.LocalDBPath},
			{config.KeyRemoteDSN, "Remote mirror DSN (empty to disable)", cfg.RemoteDSN},
			{config.KeyVerbosity, "Log verbosity (regular/maintenance/debug)", string(cfg.Verbosity)},
		}

		for _, p := range prompts {
			fmt.Fprintf(out, "%s [%s]: ", p.label, p.current)
			line, err := in.ReadString('\n')
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			value := strings.TrimSpace(line)
			if value == "" {
				continue
			}
			if p.key == config.KeyPrimarySlots || p.key == config.KeyBackupSlots {
				if _, err := config.ParseTimes(value); err != nil {
					return err
				}
			}
			if cfg, err = cfgStore.Set(p.key, value); err != nil {
				return err
			}
		}

		fmt.Fprintf(out, "Configuration written to %s\n", cfgStore.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
