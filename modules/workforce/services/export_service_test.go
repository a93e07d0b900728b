package services

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/DFE-Digital/trs-workforce/pkg/objectstore"
)

func TestExportKey(t *testing.T) {
	require.Equal(t,
		"exports/2024-05-01/person_employments.parquet",
		ExportKey("exports/", time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)),
	)
}

func TestExport_WritesSnapshot(t *testing.T) {
	db := newMemDB()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	personID := db.addPerson("1234567")
	urn := int32(100123)
	est := openEstablishment("125", "1236")
	est.URN = &urn
	est = db.addEstablishment(est)

	open := seedEmployment(db, est.ID, date("2024-03-30"), date("2024-04-25"))
	closed := seedEmployment(db, est.ID, date("2023-07-31"), date("2024-04-25"))
	db.mu.Lock()
	db.employments[0].PersonID = personID
	db.employments[0].NationalInsuranceNumber = strPtr("AB123456C")
	end := date("2023-07-31")
	db.employments[1].EndDate = &end
	db.mu.Unlock()

	store := objectstore.NewLocalStore(t.TempDir())
	svc := NewExportService(db.repos().Employments, store, "exports", testOptions(now))
	res, err := svc.Export(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Rows)
	require.Equal(t, "exports/2024-05-01/person_employments.parquet", res.Key)

	rc, err := store.Open(context.Background(), res.Key)
	require.NoError(t, err)
	raw, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)

	rows, err := parquet.Read[snapshotRecord](bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[string]snapshotRecord{}
	for _, r := range rows {
		byID[r.PersonEmploymentID] = r
	}
	got := byID[open.ID.String()]
	require.Equal(t, "1234567", got.Trn)
	require.Equal(t, est.ID.String(), got.EstablishmentID)
	require.NotNil(t, got.EstablishmentURN)
	require.Equal(t, urn, *got.EstablishmentURN)
	require.Nil(t, got.EndDate)
	require.Equal(t, epochDays(date("2024-03-30")), got.LastKnownTpsEmployedDate)
	require.NotNil(t, got.NationalInsuranceNumber)
	require.Equal(t, "AB123456C", *got.NationalInsuranceNumber)

	gotClosed := byID[closed.ID.String()]
	require.NotNil(t, gotClosed.EndDate)
	require.Equal(t, epochDays(end), *gotClosed.EndDate)
}

func TestExport_SameDayOverwrites(t *testing.T) {
	db := newMemDB()
	est := db.addEstablishment(openEstablishment("125", "1236"))
	store := objectstore.NewLocalStore(t.TempDir())
	svc := NewExportService(db.repos().Employments, store, "exports", testOptions(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))

	_, err := svc.Export(context.Background())
	require.NoError(t, err)
	seedEmployment(db, est.ID, date("2024-03-30"), date("2024-04-25"))
	res, err := svc.Export(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Rows)

	keys, err := store.List(context.Background(), "exports/")
	require.NoError(t, err)
	require.Equal(t, []string{res.Key}, keys)
}

func TestEpochDays(t *testing.T) {
	require.Equal(t, int32(0), epochDays(date("1970-01-01")))
	require.Equal(t, int32(19838), epochDays(date("2024-04-25")))
	require.Equal(t, int32(19838), epochDays(time.Date(2024, 4, 25, 23, 59, 0, 0, time.UTC)))
}
