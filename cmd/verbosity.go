package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/pagevault/internal/config"
	"github.com/example/pagevault/internal/logging"
)

var setVerbosityCmd = &cobra.Command{
	Use:   "set-verbosity <regular|maintenance|debug>",
	Short: "Persist the logging verbosity preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := logging.ParseVerbosity(args[0])
		if err != nil {
			return err
		}
		if _, err := cfgStore.Set(config.KeyVerbosity, string(v)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "verbosity set to %s\n", v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setVerbosityCmd)
}
