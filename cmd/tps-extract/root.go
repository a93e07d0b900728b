package main

import (
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tps-extract",
		Short:         "TPS workforce extract import, reconciliation and maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newPromoteCmd())
	cmd.AddCommand(newMatchCmd())
	cmd.AddCommand(newReconcileCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newImportPendingCmd())
	cmd.AddCommand(newRefreshEstablishmentsCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newMaintainCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitCode(usageByDefault(err)))
	}
}

// usageByDefault tags errors raised by cobra itself (unknown command, bad or missing
// flags) as usage errors. Command errors already carry a code.
func usageByDefault(err error) error {
	var ce *cliError
	if errors.As(err, &ce) {
		return err
	}
	return withCode(exitUsage, err)
}
