package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
	"github.com/DFE-Digital/trs-workforce/pkg/composables"
)

var loadItemColumns = []string{
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
	"full_or_part_time_indicator",
	"withdrawal_indicator",
	"extract_date",
	"gender",
	"errors",
	"created_on",
}

const loadItemSelect = `
	SELECT li.tps_load_item_id, li.tps_extract_id, li.row_number, li.trn, li.national_insurance_number,
	       li.date_of_birth, li.date_of_death, li.member_postcode, li.member_email_address,
	       li.local_authority_code, li.establishment_number, li.establishment_postcode,
	       li.establishment_email_address, li.employment_start_date, li.employment_end_date,
	       li.full_or_part_time_indicator, li.withdrawal_indicator, li.extract_date, li.gender,
	       li.errors, li.created_on
	  FROM tps_load_items li`

type PgLoadItemRepository struct{}

func NewLoadItemRepository() loaditem.Repository {
	return &PgLoadItemRepository{}
}

func (r *PgLoadItemRepository) InsertBatch(ctx context.Context, items []loaditem.LoadItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{"tps_load_items"}, loadItemColumns, pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
		li := items[i]
		return []any{
			li.ID, li.ExtractID, li.RowNumber, li.Trn, li.NationalInsuranceNumber,
			li.DateOfBirth, li.DateOfDeath, li.MemberPostcode, li.MemberEmailAddress,
			li.LocalAuthorityCode, li.EstablishmentNumber, li.EstablishmentPostcode,
			li.EstablishmentEmailAddress, li.EmploymentStartDate, li.EmploymentEndDate,
			li.FullOrPartTimeIndicator, li.WithdrawalIndicator, li.ExtractDate, li.Gender,
			int32(li.Errors), li.CreatedAt,
		}, nil
	}))
	if err != nil {
		return 0, gerrors.Wrap(err, "copy tps_load_items")
	}
	return n, nil
}

func (r *PgLoadItemRepository) ListUnpromoted(ctx context.Context, extractID uuid.UUID) ([]loaditem.LoadItem, error) {
	return r.list(ctx, loadItemSelect+`
	 WHERE li.tps_extract_id = $1
	   AND li.errors = 0
	   AND NOT EXISTS (SELECT 1 FROM tps_staged_items s WHERE s.tps_load_item_id = li.tps_load_item_id)
	 ORDER BY li.row_number`, extractID)
}

func (r *PgLoadItemRepository) ListInvalid(ctx context.Context, extractID uuid.UUID) ([]loaditem.LoadItem, error) {
	return r.list(ctx, loadItemSelect+`
	 WHERE li.tps_extract_id = $1
	   AND li.errors <> 0
	 ORDER BY li.row_number`, extractID)
}

func (r *PgLoadItemRepository) CountByValidity(ctx context.Context, extractID uuid.UUID) (int64, int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, 0, err
	}
	var valid, invalid int64
	err = tx.QueryRow(ctx, `
	SELECT count(*) FILTER (WHERE errors = 0), count(*) FILTER (WHERE errors <> 0)
	  FROM tps_load_items
	 WHERE tps_extract_id = $1`, extractID).Scan(&valid, &invalid)
	if err != nil {
		return 0, 0, gerrors.Wrap(err, "count tps_load_items")
	}
	return valid, invalid, nil
}

func (r *PgLoadItemRepository) list(ctx context.Context, query string, extractID uuid.UUID) ([]loaditem.LoadItem, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, extractID)
	if err != nil {
		return nil, gerrors.Wrap(err, "query tps_load_items")
	}
	defer rows.Close()

	var out []loaditem.LoadItem
	for rows.Next() {
		var li loaditem.LoadItem
		var errs int32
		if err := rows.Scan(
			&li.ID, &li.ExtractID, &li.RowNumber, &li.Trn, &li.NationalInsuranceNumber,
			&li.DateOfBirth, &li.DateOfDeath, &li.MemberPostcode, &li.MemberEmailAddress,
			&li.LocalAuthorityCode, &li.EstablishmentNumber, &li.EstablishmentPostcode,
			&li.EstablishmentEmailAddress, &li.EmploymentStartDate, &li.EmploymentEndDate,
			&li.FullOrPartTimeIndicator, &li.WithdrawalIndicator, &li.ExtractDate, &li.Gender,
			&errs, &li.CreatedAt,
		); err != nil {
			return nil, err
		}
		li.Errors = loaditem.LoadErrors(errs)
		out = append(out, li)
	}
	return out, rows.Err()
}
