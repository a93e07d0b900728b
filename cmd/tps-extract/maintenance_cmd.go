package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newRefreshEstablishmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-establishments",
		Short: "Repoint employments from closed establishments to their replacements",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				n, err := a.maintenance().RefreshEstablishments(ctx)
				if err != nil {
					return classify(err, exitDBWrite)
				}
				return writeJSONLine(map[string]int64{"repointed": n})
			})
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close employments not seen in an extract for three months",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				n, err := a.maintenance().SweepStale(ctx)
				if err != nil {
					return classify(err, exitDBWrite)
				}
				return writeJSONLine(map[string]int64{"closed": n})
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Upload a parquet snapshot of all employments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				res, err := a.exporter().Export(ctx)
				if err != nil {
					return classify(err, exitDB)
				}
				return writeJSONLine(res)
			})
		},
	}
}
