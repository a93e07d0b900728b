package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/services"
)

func newSummaryCmd() *cobra.Command {
	var (
		extractID string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show load validity and item outcomes for an extract",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExtractID(extractID)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				s, err := a.reports().Summary(ctx, id)
				if err != nil {
					return classify(err, exitDB)
				}
				if asJSON {
					return writeJSONLine(s)
				}
				renderSummary(cmd.OutOrStdout(), s)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&extractID, "extract", "", "Extract UUID (required)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as one JSON line")
	_ = cmd.MarkFlagRequired("extract")
	return cmd
}

func renderSummary(w io.Writer, s services.Summary) {
	color.New(color.FgCyan).Fprintf(w, "\nExtract %s (%s)\n", s.Filename, s.ExtractID)
	fmt.Fprintf(w, "Imported %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))

	color.New(color.FgYellow).Fprintln(w, "\nLoad items")
	load := tablewriter.NewWriter(w)
	load.SetHeader([]string{"Validity", "Rows"})
	load.SetAlignment(tablewriter.ALIGN_LEFT)
	load.Append([]string{"valid", fmt.Sprintf("%d", s.Valid)})
	load.Append([]string{"invalid", fmt.Sprintf("%d", s.Invalid)})
	load.Render()

	color.New(color.FgYellow).Fprintln(w, "\nStaged item results")
	results := tablewriter.NewWriter(w)
	results.SetHeader([]string{"Result", "Items"})
	results.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range stageditem.Results {
		results.Append([]string{string(r), fmt.Sprintf("%d", s.Results[r])})
	}
	results.Render()

	if n := s.Results[stageditem.Pending]; n > 0 {
		color.New(color.FgRed).Fprintf(w, "%d items are still pending\n", n)
	}
}

func newReportCmd() *cobra.Command {
	var extractID, output string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write an XLSX workbook of rejected rows and item outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExtractID(extractID)
			if err != nil {
				return err
			}
			path := strings.TrimSpace(output)
			if path == "" {
				return withCode(exitUsage, errors.New("--output is required"))
			}
			if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
				return withCode(exitUsage, errors.Errorf("--output must end in .xlsx: %s", path))
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return writeReport(ctx, a.reports(), id, path)
			})
		},
	}
	cmd.Flags().StringVar(&extractID, "extract", "", "Extract UUID (required)")
	cmd.Flags().StringVar(&output, "output", "", "Output .xlsx path (required)")
	_ = cmd.MarkFlagRequired("extract")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func writeReport(ctx context.Context, reports *services.ReportService, id uuid.UUID, path string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return withCode(exitUsage, errors.Wrap(err, "create output dir"))
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return withCode(exitUsage, errors.Wrap(err, "create output"))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = withCode(exitUsage, errors.Wrap(cerr, "close output"))
		}
	}()
	if err := reports.WriteWorkbook(ctx, id, f); err != nil {
		return classify(err, exitDB)
	}
	return writeJSONLine(map[string]string{"output": path})
}
