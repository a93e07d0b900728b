package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/establishment"
)

func seedEmployment(db *memDB, estID uuid.UUID, lastKnown, lastExtract time.Time) employment.Employment {
	db.mu.Lock()
	defer db.mu.Unlock()
	e := employment.Employment{
		ID:                    uuid.New(),
		PersonID:              uuid.New(),
		EstablishmentID:       estID,
		StartDate:             date("2020-09-01"),
		LastKnownEmployedDate: lastKnown,
		LastExtractDate:       lastExtract,
		EmploymentType:        employment.FullTime,
		Key:                   uuid.NewString(),
	}
	db.employments = append(db.employments, e)
	return e
}

func TestRefreshEstablishments_RepointsToSuccessor(t *testing.T) {
	db := newMemDB()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	successor := db.addEstablishment(openEstablishment("125", "1236"))
	newer := openEstablishment("125", "1236")
	newer.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db.addEstablishment(newer)

	closedStatus := establishment.StatusClosed
	closed := openEstablishment("125", "1236")
	closed.Status = &closedStatus
	closed.SupersededByID = &successor.ID
	closed = db.addEstablishment(closed)

	emp := seedEmployment(db, closed.ID, date("2024-03-30"), date("2024-04-25"))

	svc := NewMaintenanceService(db.repos().Establishments, db.repos().Employments, testOptions(now))
	n, err := svc.RefreshEstablishments(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	emps := db.employmentList()
	require.Equal(t, successor.ID, emps[0].EstablishmentID)
	require.Equal(t, now, emps[0].UpdatedAt)
	require.Equal(t, emp.LastKnownEmployedDate, emps[0].LastKnownEmployedDate)
	require.Equal(t, emp.EndDate, emps[0].EndDate)

	n, err = svc.RefreshEstablishments(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRefreshEstablishments_NoOpenVersionLeavesEmployment(t *testing.T) {
	db := newMemDB()
	closedStatus := establishment.StatusClosed
	closed := openEstablishment("125", "1236")
	closed.Status = &closedStatus
	closed = db.addEstablishment(closed)
	seedEmployment(db, closed.ID, date("2024-03-30"), date("2024-04-25"))

	svc := NewMaintenanceService(db.repos().Establishments, db.repos().Employments, testOptions(time.Now()))
	n, err := svc.RefreshEstablishments(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, closed.ID, db.employmentList()[0].EstablishmentID)
}

func TestSweepStale_ClosesAndIsIdempotent(t *testing.T) {
	db := newMemDB()
	est := db.addEstablishment(openEstablishment("125", "1236"))
	seedEmployment(db, est.ID, date("2024-01-24"), date("2024-04-25"))
	seedEmployment(db, est.ID, date("2024-01-25"), date("2024-04-25"))

	svc := NewMaintenanceService(db.repos().Establishments, db.repos().Employments, testOptions(time.Now()))
	n, err := svc.SweepStale(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	emps := db.employmentList()
	require.NotNil(t, emps[0].EndDate)
	require.Equal(t, date("2024-01-24"), *emps[0].EndDate)
	require.Nil(t, emps[1].EndDate)

	n, err = svc.SweepStale(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}
