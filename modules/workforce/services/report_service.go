package services

import (
	"context"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/extract"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
)

const (
	sheetLoadErrors = "Load errors"
	sheetOutcomes   = "Outcomes"
)

// Summary is the per extract tally of row validity and item results.
type Summary struct {
	ExtractID uuid.UUID                   `json:"extract_id"`
	Filename  string                      `json:"filename"`
	CreatedAt time.Time                   `json:"created_at"`
	Valid     int64                       `json:"valid"`
	Invalid   int64                       `json:"invalid"`
	Results   map[stageditem.Result]int64 `json:"results"`
}

type ReportService struct {
	extracts  extract.Repository
	loadItems loaditem.Repository
	staged    stageditem.Repository
	opts      Options
}

func NewReportService(extracts extract.Repository, loadItems loaditem.Repository, staged stageditem.Repository, opts Options) *ReportService {
	opts.setDefaults()
	return &ReportService{extracts: extracts, loadItems: loadItems, staged: staged, opts: opts}
}

func (s *ReportService) Summary(ctx context.Context, extractID uuid.UUID) (Summary, error) {
	ex, err := s.extracts.GetByID(ctx, extractID)
	if err != nil {
		return Summary{}, err
	}
	valid, invalid, err := s.loadItems.CountByValidity(ctx, extractID)
	if err != nil {
		return Summary{}, err
	}
	counts, err := s.staged.CountByResult(ctx, extractID)
	if err != nil {
		return Summary{}, err
	}
	results := make(map[stageditem.Result]int64, len(stageditem.Results))
	for _, r := range stageditem.Results {
		results[r] = counts[r]
	}
	return Summary{
		ExtractID: ex.ID,
		Filename:  ex.Filename,
		CreatedAt: ex.CreatedAt,
		Valid:     valid,
		Invalid:   invalid,
		Results:   results,
	}, nil
}

// WriteWorkbook renders the rejected rows and the per item outcomes of an extract as an
// XLSX workbook.
func (s *ReportService) WriteWorkbook(ctx context.Context, extractID uuid.UUID, w io.Writer) error {
	if _, err := s.extracts.GetByID(ctx, extractID); err != nil {
		return err
	}
	rejected, err := s.loadItems.ListInvalid(ctx, extractID)
	if err != nil {
		return err
	}
	items, err := s.staged.ListByExtract(ctx, extractID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetLoadErrors); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	if err := writeRows(f, sheetLoadErrors,
		[]any{"Row", "TRN", "NI number", "LA code", "Establishment number", "Establishment postcode", "Start date", "End date", "Errors"},
		len(rejected),
		func(i int) []any {
			li := rejected[i]
			return []any{
				li.RowNumber, li.Trn, li.NationalInsuranceNumber, li.LocalAuthorityCode,
				li.EstablishmentNumber, li.EstablishmentPostcode, li.EmploymentStartDate,
				li.EmploymentEndDate, li.Errors.String(),
			}
		},
	); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetOutcomes); err != nil {
		return errors.Wrap(err, "new sheet")
	}
	if err := writeRows(f, sheetOutcomes,
		[]any{"Row", "TRN", "LA code", "Establishment number", "Establishment postcode", "Start date", "Extract date", "Result"},
		len(items),
		func(i int) []any {
			it := items[i]
			return []any{
				it.RowNumber, it.Trn, it.LocalAuthorityCode, deref(it.EstablishmentNumber),
				deref(it.EstablishmentPostcode), it.EmploymentStartDate.Format(time.DateOnly),
				it.ExtractDate.Format(time.DateOnly), string(it.Result),
			}
		},
	); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []any, n int, row func(int) []any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.Wrapf(err, "%s header", sheet)
	}
	for i := 0; i < n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrapf(err, "%s row %d", sheet, i+2)
		}
	}
	return nil
}
