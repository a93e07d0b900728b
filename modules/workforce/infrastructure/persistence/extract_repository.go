package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/extract"
	"github.com/DFE-Digital/trs-workforce/pkg/composables"
)

const (
	extractSelect = `SELECT tps_extract_id, filename, created_on FROM tps_extracts`

	extractFilenameConstraint = "uq_tps_extracts_filename"
)

type PgExtractRepository struct{}

func NewExtractRepository() extract.Repository {
	return &PgExtractRepository{}
}

func (r *PgExtractRepository) Create(ctx context.Context, e extract.Extract) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO tps_extracts (tps_extract_id, filename, created_on) VALUES ($1, $2, $3)`,
		e.ID, e.Filename, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, extractFilenameConstraint) {
			return gerrors.Wrapf(extract.ErrAlreadyImported, "filename %s", e.Filename)
		}
		return gerrors.Wrap(err, "insert tps_extracts")
	}
	return nil
}

func (r *PgExtractRepository) GetByID(ctx context.Context, id uuid.UUID) (extract.Extract, error) {
	return r.getOne(ctx, extractSelect+` WHERE tps_extract_id = $1`, id)
}

func (r *PgExtractRepository) GetByFilename(ctx context.Context, filename string) (extract.Extract, error) {
	return r.getOne(ctx, extractSelect+` WHERE filename = $1`, filename)
}

func (r *PgExtractRepository) List(ctx context.Context) ([]extract.Extract, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, extractSelect+` ORDER BY created_on, filename`)
	if err != nil {
		return nil, gerrors.Wrap(err, "query tps_extracts")
	}
	defer rows.Close()

	var out []extract.Extract
	for rows.Next() {
		var e extract.Extract
		if err := rows.Scan(&e.ID, &e.Filename, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PgExtractRepository) getOne(ctx context.Context, query string, arg any) (extract.Extract, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return extract.Extract{}, err
	}
	var e extract.Extract
	if err := tx.QueryRow(ctx, query, arg).Scan(&e.ID, &e.Filename, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return extract.Extract{}, extract.ErrNotFound
		}
		return extract.Extract{}, err
	}
	return e, nil
}
