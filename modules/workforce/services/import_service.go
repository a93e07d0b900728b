package services

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/extract"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
)

type ImportResult struct {
	ExtractID uuid.UUID `json:"extract_id"`
	Filename  string    `json:"filename"`
	Rows      int       `json:"rows"`
	Valid     int       `json:"valid"`
	Invalid   int       `json:"invalid"`
}

type ImportService struct {
	extracts  extract.Repository
	loadItems loaditem.Repository
	opts      Options
}

func NewImportService(extracts extract.Repository, loadItems loaditem.Repository, opts Options) *ImportService {
	opts.setDefaults()
	return &ImportService{extracts: extracts, loadItems: loadItems, opts: opts}
}

// Import registers filename as a new extract and stores every row of r as a LoadItem.
// Nothing is written when the file cannot be read or was imported before.
func (s *ImportService) Import(ctx context.Context, filename string, r io.Reader) (ImportResult, error) {
	now := s.opts.Now()
	ex, err := extract.New(filename, now)
	if err != nil {
		return ImportResult{}, err
	}
	if _, err := s.extracts.GetByFilename(ctx, ex.Filename); err == nil {
		return ImportResult{}, errors.Wrapf(extract.ErrAlreadyImported, "%s", ex.Filename)
	} else if !errors.Is(err, extract.ErrNotFound) {
		return ImportResult{}, err
	}

	items, err := ReadExtract(r, ex.ID, now)
	if err != nil {
		return ImportResult{}, errors.Wrapf(err, "read %s", ex.Filename)
	}

	res := ImportResult{ExtractID: ex.ID, Filename: ex.Filename, Rows: len(items)}
	for _, li := range items {
		if li.Errors == loaditem.None {
			res.Valid++
		} else {
			res.Invalid++
		}
	}

	err = s.opts.InTx(ctx, func(txCtx context.Context) error {
		if err := s.extracts.Create(txCtx, ex); err != nil {
			return err
		}
		_, err := s.loadItems.InsertBatch(txCtx, items)
		return err
	})
	if err != nil {
		return ImportResult{}, err
	}

	m := getMetrics()
	m.loadRows.WithLabelValues("valid").Add(float64(res.Valid))
	m.loadRows.WithLabelValues("invalid").Add(float64(res.Invalid))
	s.opts.Logger.WithFields(map[string]any{
		"extract_id": ex.ID,
		"stage":      "import",
		"rows":       res.Rows,
		"invalid":    res.Invalid,
	}).Info("extract imported")
	return res, nil
}
