package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/establishment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
)

func TestMatchEstablishments_PrefersOpenVersion(t *testing.T) {
	db := newMemDB()
	db.addPerson("1234567")
	closedStatus := establishment.StatusClosed
	closed := openEstablishment("125", "1236")
	closed.Status = &closedStatus
	closed.CreatedAt = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	db.addEstablishment(closed)
	open := db.addEstablishment(openEstablishment("125", "1236"))

	opts := testOptions(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	id := stageExtract(t, db, opts, "a.csv", extractCSV(e2eRow))

	items, err := db.repos().StagedItems.ListByExtract(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, items[0].EstablishmentID)
	require.Equal(t, open.ID, *items[0].EstablishmentID)
	require.Equal(t, stageditem.Pending, items[0].Result)
}

func TestMatchEstablishments_HigherEducationByPostcode(t *testing.T) {
	db := newMemDB()
	db.addPerson("1234567")
	s := establishment.StatusOpen
	he := db.addEstablishment(establishment.Establishment{
		LaCode:            "125",
		Name:              "University",
		Postcode:          strPtr("AB1 2CD"),
		Status:            &s,
		IsHigherEducation: true,
	})

	r := e2eRow
	r.number = ""
	r.postcode = "ab12cd"
	opts := testOptions(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	id := stageExtract(t, db, opts, "he.csv", extractCSV(r))

	items, err := db.repos().StagedItems.ListByExtract(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, items[0].EstablishmentID)
	require.Equal(t, he.ID, *items[0].EstablishmentID)
}

func TestMatchEstablishments_NoCandidateIsInvalid(t *testing.T) {
	db := newMemDB()
	db.addPerson("1234567")
	db.addEstablishment(openEstablishment("126", "1236"))

	opts := testOptions(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	id := stageExtract(t, db, opts, "none.csv", extractCSV(e2eRow))

	items, err := db.repos().StagedItems.ListByExtract(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, stageditem.InvalidEstablishment, items[0].Result)
	require.Nil(t, items[0].EstablishmentID)
}

func TestMatchers_ItemClaimedByOneInvalidResult(t *testing.T) {
	db := newMemDB()
	opts := testOptions(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	id := stageExtract(t, db, opts, "both.csv", extractCSV(e2eRow))

	counts, err := db.repos().StagedItems.CountByResult(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, map[stageditem.Result]int64{stageditem.InvalidTrn: 1}, counts)
}
