package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/pagevault/internal/config"
)

var (
	primaryTimes string
	backupTimes  string
)

var updateTimesCmd = &cobra.Command{
	Use:   "update-times",
	Short: "Update the daily capture time slots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if primaryTimes == "" && backupTimes == "" {
			return fmt.Errorf("nothing to update; pass --primary and/or --backup")
		}
		if primaryTimes != "" {
			if _, err := config.ParseTimes(primaryTimes); err != nil {
				return err
			}
			if _, err := cfgStore.Set(config.KeyPrimarySlots, primaryTimes); err != nil {
				return err
			}
		}
		if backupTimes != "" {
			if _, err := config.ParseTimes(backupTimes); err != nil {
				return err
			}
			if _, err := cfgStore.Set(config.KeyBackupSlots, backupTimes); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "capture times updated")
		return nil
	},
}

func init() {
	updateTimesCmd.Flags().StringVar(&primaryTimes, "primary", "", "primary capture times (HH:MM, comma-separated)")
	updateTimesCmd.Flags().StringVar(&backupTimes, "backup", "", "backup capture times (HH:MM, comma-separated)")
	rootCmd.AddCommand(updateTimesCmd)
}
