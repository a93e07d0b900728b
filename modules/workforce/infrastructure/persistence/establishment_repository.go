package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/establishment"
	"github.com/DFE-Digital/trs-workforce/pkg/composables"
)

const establishmentSelect = `
	SELECT establishment_id, establishment_source, urn, la_code, establishment_number, establishment_name,
	       postcode, establishment_status_code, is_higher_education, superseded_by_establishment_id, created_on
	  FROM establishments`

type PgEstablishmentRepository struct{}

func NewEstablishmentRepository() establishment.Repository {
	return &PgEstablishmentRepository{}
}

func (r *PgEstablishmentRepository) ListByLaCodes(ctx context.Context, laCodes []string) ([]establishment.Establishment, error) {
	if len(laCodes) == 0 {
		return nil, nil
	}
	return r.list(ctx, establishmentSelect+` WHERE la_code = ANY($1::text[])`, laCodes)
}

func (r *PgEstablishmentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]establishment.Establishment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, establishmentSelect+` WHERE establishment_id = ANY($1::uuid[])`, ids)
}

func (r *PgEstablishmentRepository) list(ctx context.Context, query string, arg any) ([]establishment.Establishment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, arg)
	if err != nil {
		return nil, gerrors.Wrap(err, "query establishments")
	}
	defer rows.Close()

	var out []establishment.Establishment
	for rows.Next() {
		var (
			e      establishment.Establishment
			status *int16
		)
		if err := rows.Scan(
			&e.ID, &e.Source, &e.URN, &e.LaCode, &e.EstablishmentNumber, &e.Name,
			&e.Postcode, &status, &e.IsHigherEducation, &e.SupersededByID, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if status != nil {
			s := establishment.Status(*status)
			e.Status = &s
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
