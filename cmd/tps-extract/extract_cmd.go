package main

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/services"
)

type extractOutput struct {
	ExtractID uuid.UUID `json:"extract_id"`
	Stage     string    `json:"stage"`
	Result    any       `json:"result"`
}

func newImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an extract file from object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := requireFile(file)
			if err != nil {
				return err
			}
			return withPipeline(cmd.Context(), func(ctx context.Context, p *services.Pipeline) error {
				res, err := p.Import(ctx, key)
				if err != nil {
					return classify(err, exitDBWrite)
				}
				return writeJSONLine(extractOutput{ExtractID: res.ExtractID, Stage: "import", Result: res})
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Object key of the extract file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// newExtractStageCmd builds a command that runs one stage against --extract.
func newExtractStageCmd(use, short, stage string, run func(ctx context.Context, p *services.Pipeline, id uuid.UUID) (any, error)) *cobra.Command {
	var extractID string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExtractID(extractID)
			if err != nil {
				return err
			}
			return withPipeline(cmd.Context(), func(ctx context.Context, p *services.Pipeline) error {
				res, err := run(ctx, p, id)
				if err != nil {
					return classify(err, exitDBWrite)
				}
				return writeJSONLine(extractOutput{ExtractID: id, Stage: stage, Result: res})
			})
		},
	}
	cmd.Flags().StringVar(&extractID, "extract", "", "Extract UUID (required)")
	_ = cmd.MarkFlagRequired("extract")
	return cmd
}

func newPromoteCmd() *cobra.Command {
	return newExtractStageCmd("promote", "Promote valid load items to staged items", "promote",
		func(ctx context.Context, p *services.Pipeline, id uuid.UUID) (any, error) {
			n, err := p.Promote(ctx, id)
			return map[string]int64{"promoted": n}, err
		})
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match staged items to persons or establishments",
	}
	cmd.AddCommand(newExtractStageCmd("persons", "Match staged items to persons by TRN", "match_persons",
		func(ctx context.Context, p *services.Pipeline, id uuid.UUID) (any, error) {
			return p.MatchPersons(ctx, id)
		}))
	cmd.AddCommand(newExtractStageCmd("establishments", "Match staged items to establishments", "match_establishments",
		func(ctx context.Context, p *services.Pipeline, id uuid.UUID) (any, error) {
			return p.MatchEstablishments(ctx, id)
		}))
	return cmd
}

func newReconcileCmd() *cobra.Command {
	return newExtractStageCmd("reconcile", "Reconcile matched staged items into employments", "reconcile",
		func(ctx context.Context, p *services.Pipeline, id uuid.UUID) (any, error) {
			return p.Reconcile(ctx, id)
		})
}

func newRunCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import an extract file and run every stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := requireFile(file)
			if err != nil {
				return err
			}
			return withPipeline(cmd.Context(), func(ctx context.Context, p *services.Pipeline) error {
				res, err := p.Run(ctx, key)
				if err != nil {
					return classify(err, exitDBWrite)
				}
				return writeJSONLine(extractOutput{ExtractID: res.Import.ExtractID, Stage: "run", Result: res})
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Object key of the extract file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newImportPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-pending",
		Short: "Run the pipeline for every inbound file and move it to the processed prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPipeline(cmd.Context(), func(ctx context.Context, p *services.Pipeline) error {
				results, err := p.ImportPending(ctx)
				for _, r := range results {
					if werr := writeJSONLine(r); werr != nil {
						return werr
					}
				}
				return classify(err, exitDBWrite)
			})
		},
	}
}

func requireFile(file string) (string, error) {
	key := strings.TrimSpace(file)
	if key == "" {
		return "", withCode(exitUsage, errors.New("--file is required"))
	}
	return key, nil
}
