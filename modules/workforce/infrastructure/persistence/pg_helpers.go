package persistence

import (
	"errors"
	"time"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const pgUniqueViolation = "23505"

func pgDateOnlyUTC(t time.Time) pgtype.Date {
	u := employment.DateOnly(t)
	if u.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: u, Valid: true}
}

func pgDatePtr(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgDateOnlyUTC(*t)
}

func datePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := employment.DateOnly(d.Time)
	return &t
}

func dateValue(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return employment.DateOnly(d.Time)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
