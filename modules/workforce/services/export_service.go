package services

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/pkg/objectstore"
)

const (
	exportFilename    = "person_employments.parquet"
	exportContentType = "application/vnd.apache.parquet"
	exportRowGroup    = 10_000
)

// snapshotRecord is one row of the employment snapshot file. Dates are days since the
// Unix epoch and timestamps are Unix milliseconds.
type snapshotRecord struct {
	PersonEmploymentID       string  `parquet:"person_employment_id"`
	PersonID                 string  `parquet:"person_id"`
	Trn                      string  `parquet:"trn"`
	EstablishmentID          string  `parquet:"establishment_id"`
	EstablishmentSource      string  `parquet:"establishment_source"`
	EstablishmentURN         *int32  `parquet:"establishment_urn,optional"`
	EstablishmentName        string  `parquet:"establishment_name"`
	StartDate                int32   `parquet:"start_date,date"`
	LastKnownTpsEmployedDate int32   `parquet:"last_known_tps_employed_date,date"`
	EndDate                  *int32  `parquet:"end_date,optional,date"`
	EmploymentType           int32   `parquet:"employment_type"`
	WithdrawalConfirmed      bool    `parquet:"withdrawal_confirmed"`
	LastExtractDate          int32   `parquet:"last_extract_date,date"`
	Key                      string  `parquet:"key"`
	NationalInsuranceNumber  *string `parquet:"national_insurance_number,optional"`
	PersonPostcode           *string `parquet:"person_postcode,optional"`
	CreatedOn                int64   `parquet:"created_on,timestamp"`
	UpdatedOn                int64   `parquet:"updated_on,timestamp"`
}

func epochDays(t time.Time) int32 {
	return int32(employment.DateOnly(t).Unix() / 86400)
}

func toSnapshotRecord(r employment.SnapshotRow) snapshotRecord {
	e := r.Employment
	rec := snapshotRecord{
		PersonEmploymentID:       e.ID.String(),
		PersonID:                 e.PersonID.String(),
		Trn:                      r.TRN,
		EstablishmentID:          e.EstablishmentID.String(),
		EstablishmentSource:      r.EstablishmentSource,
		EstablishmentURN:         r.EstablishmentURN,
		EstablishmentName:        r.EstablishmentName,
		StartDate:                epochDays(e.StartDate),
		LastKnownTpsEmployedDate: epochDays(e.LastKnownEmployedDate),
		EmploymentType:           int32(e.EmploymentType),
		WithdrawalConfirmed:      e.WithdrawalConfirmed,
		LastExtractDate:          epochDays(e.LastExtractDate),
		Key:                      e.Key,
		NationalInsuranceNumber:  e.NationalInsuranceNumber,
		PersonPostcode:           e.PersonPostcode,
		CreatedOn:                e.CreatedAt.UnixMilli(),
		UpdatedOn:                e.UpdatedAt.UnixMilli(),
	}
	if e.EndDate != nil {
		d := epochDays(*e.EndDate)
		rec.EndDate = &d
	}
	return rec
}

type ExportResult struct {
	Key  string `json:"key"`
	Rows int64  `json:"rows"`
}

type ExportService struct {
	employments employment.Repository
	store       objectstore.Store
	prefix      string
	opts        Options
}

func NewExportService(employments employment.Repository, store objectstore.Store, prefix string, opts Options) *ExportService {
	opts.setDefaults()
	return &ExportService{employments: employments, store: store, prefix: prefix, opts: opts}
}

// ExportKey is the object key of the snapshot for the given run date.
func ExportKey(prefix string, runDate time.Time) string {
	return objectstore.Join(prefix, runDate.UTC().Format("2006-01-02"), exportFilename)
}

// Export writes the full employment snapshot to a Parquet file and uploads it. A second
// export on the same day replaces the first.
func (s *ExportService) Export(ctx context.Context) (ExportResult, error) {
	var res ExportResult
	err := runStage(ctx, "export", uuid.Nil, func(ctx context.Context) error {
		tmp, err := os.CreateTemp("", "person_employments-*.parquet")
		if err != nil {
			return errors.Wrap(err, "create temp file")
		}
		defer func() {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}()

		rows, err := s.writeSnapshot(ctx, tmp)
		if err != nil {
			return err
		}
		size, err := tmp.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			return err
		}

		key := ExportKey(s.prefix, s.opts.Now())
		if err := s.store.Put(ctx, key, tmp, size, exportContentType); err != nil {
			return errors.Wrapf(err, "upload %s", key)
		}
		res = ExportResult{Key: key, Rows: rows}
		return nil
	})
	m := getMetrics()
	if err != nil {
		m.exportsTotal.WithLabelValues("failure").Inc()
		return ExportResult{}, err
	}
	m.exportsTotal.WithLabelValues("success").Inc()
	m.exportRows.Add(float64(res.Rows))
	s.opts.Logger.WithFields(map[string]any{
		"stage": "export",
		"rows":  res.Rows,
		"key":   res.Key,
	}).Info("employment snapshot exported")
	return res, nil
}

func (s *ExportService) writeSnapshot(ctx context.Context, w io.Writer) (int64, error) {
	pw := parquet.NewGenericWriter[snapshotRecord](w, parquet.Compression(&parquet.Snappy))
	buf := make([]snapshotRecord, 0, exportRowGroup)
	var rows int64

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		if _, err := pw.Write(buf); err != nil {
			return errors.Wrap(err, "write rows")
		}
		if err := pw.Flush(); err != nil {
			return errors.Wrap(err, "flush row group")
		}
		buf = buf[:0]
		return nil
	}

	err := s.employments.StreamSnapshot(ctx, func(r employment.SnapshotRow) error {
		buf = append(buf, toSnapshotRecord(r))
		rows++
		if len(buf) == exportRowGroup {
			return flush()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := flush(); err != nil {
		return 0, err
	}
	if err := pw.Close(); err != nil {
		return 0, errors.Wrap(err, "close parquet writer")
	}
	return rows, nil
}
