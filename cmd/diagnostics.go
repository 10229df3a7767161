package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/pagevault/internal/diagnostics"
	"github.com/example/pagevault/internal/fetch"
)

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Check store and target connectivity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

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

		report := diagnostics.New(local, mirror, fetcher, logger).Run(ctx, cfg.TargetURLs)

		fmt.Fprintf(out, "local store:  %s\n", status(report.LocalOK, report.LocalErr))
		switch {
		case report.RemoteSkipped:
			fmt.Fprintln(out, "mirror:       skipped (not configured)")
		default:
			fmt.Fprintf(out, "mirror:       %s\n", status(report.RemoteOK, report.RemoteErr))
		}
		for _, u := range report.URLs {
			fmt.Fprintf(out, "target %s: reachable=%v body=%v", u.URL, u.Reachable, u.HasBody)
			if u.Err != "" {
				fmt.Fprintf(out, " (%s)", u.Err)
			}
			fmt.Fprintln(out)
		}

		if !report.OK() {
			return fmt.Errorf("diagnostics found problems")
		}
		fmt.Fprintln(out, "all checks passed")
		return nil
	},
}

func status(ok bool, errText string) string {
	if ok {
		return "ok"
	}
	return "failed (" + errText + ")"
}

func init() {
	rootCmd.AddCommand(diagnosticsCmd)
}
