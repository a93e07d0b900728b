package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
	"github.com/DFE-Digital/trs-workforce/pkg/composables"
)

var stagedItemColumns = []string{
	"tps_staged_item_id",
	"tps_load_item_id",
	"tps_extract_id",
	"row_number",
	"trn",
	"national_insurance_number",
	"date_of_birth",
	"date_of_death",
	"member_postcode",
	"member_email_address",
	"local_authority_code",
	"establishment_number",
	"establishment_postcode",
	"establishment_email_address",
	"employment_start_date",
	"employment_end_date",
	"employment_type",
	"withdrawn",
	"extract_date",
	"gender",
	"result",
	"person_id",
	"establishment_id",
	"created_on",
}

const stagedItemSelect = `
	SELECT tps_staged_item_id, tps_load_item_id, tps_extract_id, row_number, trn, national_insurance_number,
	       date_of_birth, date_of_death, member_postcode, member_email_address, local_authority_code,
	       establishment_number, establishment_postcode, establishment_email_address,
	       employment_start_date, employment_end_date, employment_type, withdrawn, extract_date, gender,
	       result, person_id, establishment_id, created_on
	  FROM tps_staged_items`

type PgStagedItemRepository struct{}

func NewStagedItemRepository() stageditem.Repository {
	return &PgStagedItemRepository{}
}

func (r *PgStagedItemRepository) InsertBatch(ctx context.Context, items []stageditem.StagedItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"tps_staged_items"}, stagedItemColumns, pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
		s := items[i]
		return []any{
			s.ID, s.LoadItemID, s.ExtractID, s.RowNumber, s.Trn, s.NationalInsuranceNumber,
			pgDateOnlyUTC(s.DateOfBirth), pgDatePtr(s.DateOfDeath), s.MemberPostcode, s.MemberEmailAddress,
			s.LocalAuthorityCode, s.EstablishmentNumber, s.EstablishmentPostcode, s.EstablishmentEmailAddress,
			pgDateOnlyUTC(s.EmploymentStartDate), pgDateOnlyUTC(s.EmploymentEndDate), int16(s.EmploymentType),
			s.Withdrawn, pgDateOnlyUTC(s.ExtractDate), s.Gender,
			string(s.Result), s.PersonID, s.EstablishmentID, s.CreatedAt,
		}, nil
	}))
	if err != nil {
		return 0, gerrors.Wrap(err, "copy tps_staged_items")
	}
	return n, nil
}

func (r *PgStagedItemRepository) AssignPersons(ctx context.Context, extractID uuid.UUID) (int64, int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, 0, err
	}
	matched, err := tx.Exec(ctx, `
	UPDATE tps_staged_items s
	   SET person_id = p.person_id
	  FROM persons p
	 WHERE s.tps_extract_id = $1
	   AND s.result = 'pending'
	   AND s.person_id IS NULL
	   AND p.trn = s.trn`, extractID)
	if err != nil {
		return 0, 0, gerrors.Wrap(err, "assign persons")
	}
	invalid, err := tx.Exec(ctx, `
	UPDATE tps_staged_items
	   SET result = 'invalid_trn'
	 WHERE tps_extract_id = $1
	   AND result = 'pending'
	   AND person_id IS NULL`, extractID)
	if err != nil {
		return 0, 0, gerrors.Wrap(err, "mark invalid trn")
	}
	return matched.RowsAffected(), invalid.RowsAffected(), nil
}

func (r *PgStagedItemRepository) ListPending(ctx context.Context, extractID uuid.UUID) ([]stageditem.StagedItem, error) {
	return r.list(ctx, stagedItemSelect+`
	 WHERE tps_extract_id = $1 AND result = 'pending'
	 ORDER BY row_number`, extractID)
}

func (r *PgStagedItemRepository) ListReconcilable(ctx context.Context, extractID uuid.UUID) ([]stageditem.StagedItem, error) {
	return r.list(ctx, stagedItemSelect+`
	 WHERE tps_extract_id = $1
	   AND result = 'pending'
	   AND person_id IS NOT NULL
	   AND establishment_id IS NOT NULL
	 ORDER BY row_number`, extractID)
}

func (r *PgStagedItemRepository) ListByExtract(ctx context.Context, extractID uuid.UUID) ([]stageditem.StagedItem, error) {
	return r.list(ctx, stagedItemSelect+`
	 WHERE tps_extract_id = $1
	 ORDER BY row_number`, extractID)
}

func (r *PgStagedItemRepository) SetEstablishments(ctx context.Context, matches []stageditem.EstablishmentMatch) (int64, error) {
	if len(matches) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	itemIDs := make([]uuid.UUID, len(matches))
	estIDs := make([]uuid.UUID, len(matches))
	for i, m := range matches {
		itemIDs[i] = m.ItemID
		estIDs[i] = m.EstablishmentID
	}
	tag, err := tx.Exec(ctx, `
	UPDATE tps_staged_items s
	   SET establishment_id = u.establishment_id
	  FROM unnest($1::uuid[], $2::uuid[]) AS u(item_id, establishment_id)
	 WHERE s.tps_staged_item_id = u.item_id
	   AND s.result = 'pending'`, itemIDs, estIDs)
	if err != nil {
		return 0, gerrors.Wrap(err, "set establishments")
	}
	return tag.RowsAffected(), nil
}

func (r *PgStagedItemRepository) SetResults(ctx context.Context, results []stageditem.ItemResult) (int64, error) {
	if len(results) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, len(results))
	values := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.ItemID
		values[i] = string(res.Result)
	}
	tag, err := tx.Exec(ctx, `
	UPDATE tps_staged_items s
	   SET result = u.result
	  FROM unnest($1::uuid[], $2::text[]) AS u(item_id, result)
	 WHERE s.tps_staged_item_id = u.item_id
	   AND s.result = 'pending'`, ids, values)
	if err != nil {
		return 0, gerrors.Wrap(err, "set staged item results")
	}
	return tag.RowsAffected(), nil
}

func (r *PgStagedItemRepository) CountByResult(ctx context.Context, extractID uuid.UUID) (map[stageditem.Result]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, `
	SELECT result, count(*)
	  FROM tps_staged_items
	 WHERE tps_extract_id = $1
	 GROUP BY result`, extractID)
	if err != nil {
		return nil, gerrors.Wrap(err, "count staged item results")
	}
	defer rows.Close()

	out := make(map[stageditem.Result]int64)
	for rows.Next() {
		var result string
		var n int64
		if err := rows.Scan(&result, &n); err != nil {
			return nil, err
		}
		out[stageditem.Result(result)] = n
	}
	return out, rows.Err()
}

func (r *PgStagedItemRepository) list(ctx context.Context, query string, extractID uuid.UUID) ([]stageditem.StagedItem, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, extractID)
	if err != nil {
		return nil, gerrors.Wrap(err, "query tps_staged_items")
	}
	defer rows.Close()

	var out []stageditem.StagedItem
	for rows.Next() {
		var (
			s                                 stageditem.StagedItem
			dob, dod, start, end, extractDate pgtype.Date
			empType                           int16
			result                            string
		)
		if err := rows.Scan(
			&s.ID, &s.LoadItemID, &s.ExtractID, &s.RowNumber, &s.Trn, &s.NationalInsuranceNumber,
			&dob, &dod, &s.MemberPostcode, &s.MemberEmailAddress, &s.LocalAuthorityCode,
			&s.EstablishmentNumber, &s.EstablishmentPostcode, &s.EstablishmentEmailAddress,
			&start, &end, &empType, &s.Withdrawn, &extractDate, &s.Gender,
			&result, &s.PersonID, &s.EstablishmentID, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		s.DateOfBirth = dateValue(dob)
		s.DateOfDeath = datePtr(dod)
		s.EmploymentStartDate = dateValue(start)
		s.EmploymentEndDate = dateValue(end)
		s.ExtractDate = dateValue(extractDate)
		s.EmploymentType = employment.Type(empType)
		s.Result = stageditem.Result(result)
		out = append(out, s)
	}
	return out, rows.Err()
}
