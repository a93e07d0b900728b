package persistence

import (
	"context"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/pkg/composables"
)

var employmentColumns = []string{
	"person_employment_id",
	"person_id",
	"establishment_id",
	"start_date",
	"end_date",
	"last_known_tps_employed_date",
	"last_extract_date",
	"employment_type",
	"withdrawal_confirmed",
	"national_insurance_number",
	"person_postcode",
	"person_email_address",
	"employer_postcode",
	"employer_email_address",
	"key",
	"created_on",
	"updated_on",
}

const employmentSelect = `
	SELECT e.person_employment_id, e.person_id, e.establishment_id, e.start_date, e.end_date,
	       e.last_known_tps_employed_date, e.last_extract_date, e.employment_type, e.withdrawal_confirmed,
	       e.national_insurance_number, e.person_postcode, e.person_email_address,
	       e.employer_postcode, e.employer_email_address, e.key, e.created_on, e.updated_on
	  FROM person_employments e`

type PgEmploymentRepository struct{}

func NewEmploymentRepository() employment.Repository {
	return &PgEmploymentRepository{}
}

func (r *PgEmploymentRepository) GetByKeys(ctx context.Context, keys []string) (map[string]employment.Employment, error) {
	out := make(map[string]employment.Employment, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, employmentSelect+` WHERE e.key = ANY($1::text[])`, keys)
	if err != nil {
		return nil, gerrors.Wrap(err, "query person_employments by key")
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEmployment(rows)
		if err != nil {
			return nil, err
		}
		out[e.Key] = e
	}
	return out, rows.Err()
}

func (r *PgEmploymentRepository) InsertBatch(ctx context.Context, items []employment.Employment) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"person_employments"}, employmentColumns, pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
		e := items[i]
		return []any{
			e.ID, e.PersonID, e.EstablishmentID, pgDateOnlyUTC(e.StartDate), pgDatePtr(e.EndDate),
			pgDateOnlyUTC(e.LastKnownEmployedDate), pgDateOnlyUTC(e.LastExtractDate), int16(e.EmploymentType),
			e.WithdrawalConfirmed, e.NationalInsuranceNumber, e.PersonPostcode, e.PersonEmailAddress,
			e.EmployerPostcode, e.EmployerEmailAddress, e.Key, e.CreatedAt, e.UpdatedAt,
		}, nil
	}))
	if err != nil {
		return 0, gerrors.Wrap(err, "copy person_employments")
	}
	return n, nil
}

func (r *PgEmploymentRepository) UpdateBatch(ctx context.Context, items []employment.Employment) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	batch := &pgx.Batch{}
	for _, e := range items {
		batch.Queue(`
		UPDATE person_employments
		   SET end_date = $2,
		       last_known_tps_employed_date = $3,
		       last_extract_date = $4,
		       employment_type = $5,
		       withdrawal_confirmed = $6,
		       national_insurance_number = $7,
		       person_postcode = $8,
		       person_email_address = $9,
		       employer_postcode = $10,
		       employer_email_address = $11,
		       updated_on = $12
		 WHERE person_employment_id = $1`,
			e.ID, pgDatePtr(e.EndDate), pgDateOnlyUTC(e.LastKnownEmployedDate), pgDateOnlyUTC(e.LastExtractDate),
			int16(e.EmploymentType), e.WithdrawalConfirmed, e.NationalInsuranceNumber, e.PersonPostcode,
			e.PersonEmailAddress, e.EmployerPostcode, e.EmployerEmailAddress, e.UpdatedAt,
		)
	}
	return execBatch(ctx, tx.SendBatch(ctx, batch), batch.Len(), "update person_employments")
}

func (r *PgEmploymentRepository) ListOnClosedEstablishments(ctx context.Context) ([]employment.Employment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, employmentSelect+`
	  JOIN establishments est ON est.establishment_id = e.establishment_id
	 WHERE est.establishment_status_code = 2
	   AND est.establishment_number IS NOT NULL`)
	if err != nil {
		return nil, gerrors.Wrap(err, "query employments on closed establishments")
	}
	defer rows.Close()

	var out []employment.Employment
	for rows.Next() {
		e, err := scanEmployment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PgEmploymentRepository) RepointEstablishments(ctx context.Context, repoints []employment.Repoint, now time.Time) (int64, error) {
	if len(repoints) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	batch := &pgx.Batch{}
	for _, rp := range repoints {
		batch.Queue(`
		UPDATE person_employments
		   SET establishment_id = $3, updated_on = $4
		 WHERE person_employment_id = $1
		   AND establishment_id = $2`,
			rp.EmploymentID, rp.FromEstablishmentID, rp.ToEstablishmentID, now,
		)
	}
	return execBatch(ctx, tx.SendBatch(ctx, batch), batch.Len(), "repoint person_employments")
}

func (r *PgEmploymentRepository) CloseStale(ctx context.Context, months int, now time.Time) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	tag, err := tx.Exec(ctx, `
	UPDATE person_employments
	   SET end_date = last_known_tps_employed_date,
	       updated_on = $2
	 WHERE end_date IS NULL
	   AND last_known_tps_employed_date < (last_extract_date - make_interval(months => $1))::date`,
		months, now,
	)
	if err != nil {
		return 0, gerrors.Wrap(err, "close stale person_employments")
	}
	return tag.RowsAffected(), nil
}

func (r *PgEmploymentRepository) StreamSnapshot(ctx context.Context, fn func(employment.SnapshotRow) error) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	rows, err := tx.Query(ctx, `
	SELECT e.person_employment_id, e.person_id, e.establishment_id, e.start_date, e.end_date,
	       e.last_known_tps_employed_date, e.last_extract_date, e.employment_type, e.withdrawal_confirmed,
	       e.national_insurance_number, e.person_postcode, e.person_email_address,
	       e.employer_postcode, e.employer_email_address, e.key, e.created_on, e.updated_on,
	       p.trn, est.establishment_source, est.urn, est.establishment_name
	  FROM person_employments e
	  JOIN persons p ON p.person_id = e.person_id
	  JOIN establishments est ON est.establishment_id = e.establishment_id
	 ORDER BY e.created_on, e.person_employment_id`)
	if err != nil {
		return gerrors.Wrap(err, "query employment snapshot")
	}
	defer rows.Close()

	for rows.Next() {
		var row employment.SnapshotRow
		e, err := scanEmployment(rows, &row.TRN, &row.EstablishmentSource, &row.EstablishmentURN, &row.EstablishmentName)
		if err != nil {
			return err
		}
		row.Employment = e
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanEmployment(rows pgx.Rows, extra ...any) (employment.Employment, error) {
	var (
		e                              employment.Employment
		start, end, lastKnown, lastExt pgtype.Date
		empType                        int16
	)
	dest := []any{
		&e.ID, &e.PersonID, &e.EstablishmentID, &start, &end,
		&lastKnown, &lastExt, &empType, &e.WithdrawalConfirmed,
		&e.NationalInsuranceNumber, &e.PersonPostcode, &e.PersonEmailAddress,
		&e.EmployerPostcode, &e.EmployerEmailAddress, &e.Key, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return employment.Employment{}, err
	}
	e.StartDate = dateValue(start)
	e.EndDate = datePtr(end)
	e.LastKnownEmployedDate = dateValue(lastKnown)
	e.LastExtractDate = dateValue(lastExt)
	e.EmploymentType = employment.Type(empType)
	return e, nil
}

func execBatch(ctx context.Context, br pgx.BatchResults, n int, op string) (int64, error) {
	defer func() { _ = br.Close() }()
	var affected int64
	for i := 0; i < n; i++ {
		tag, err := br.Exec()
		if err != nil {
			return affected, gerrors.Wrap(err, op)
		}
		affected += tag.RowsAffected()
	}
	if err := ctx.Err(); err != nil {
		return affected, err
	}
	return affected, nil
}
