package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
)

// stageExtract imports and promotes body, then runs both matchers.
func stageExtract(t *testing.T, db *memDB, opts Options, name, body string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	repos := db.repos()

	imported, err := NewImportService(repos.Extracts, repos.LoadItems, opts).Import(ctx, name, strings.NewReader(body))
	require.NoError(t, err)
	_, err = NewStagingService(repos.LoadItems, repos.StagedItems, opts).Promote(ctx, imported.ExtractID)
	require.NoError(t, err)

	m := NewMatchingService(repos.StagedItems, repos.Establishments, opts)
	_, err = m.MatchPersons(ctx, imported.ExtractID)
	require.NoError(t, err)
	_, err = m.MatchEstablishments(ctx, imported.ExtractID)
	require.NoError(t, err)
	return imported.ExtractID
}

func TestReconcile_DuplicateKeysInOneExtract(t *testing.T) {
	db := newMemDB()
	db.addPerson("1234567")
	db.addEstablishment(openEstablishment("125", "1236"))
	opts := testOptions(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	later := e2eRow
	later.end = "20/04/2024"
	same := later
	id := stageExtract(t, db, opts, "dup.csv", extractCSV(e2eRow, later, same))

	repos := db.repos()
	res, err := NewReconciliationService(repos.StagedItems, repos.Employments, opts).Reconcile(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, ReconcileResult{Added: 1, Updated: 1, NoChange: 1}, res)

	emps := db.employmentList()
	require.Len(t, emps, 1)
	require.Equal(t, date("2024-04-20"), emps[0].LastKnownEmployedDate)

	items, err := repos.StagedItems.ListByExtract(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, []stageditem.Result{
		stageditem.ValidDataAdded, stageditem.ValidDataUpdated, stageditem.ValidNoChange,
	}, []stageditem.Result{items[0].Result, items[1].Result, items[2].Result})
}

func TestReconcile_WithdrawalAndRetraction(t *testing.T) {
	db := newMemDB()
	db.addPerson("1234567")
	db.addEstablishment(openEstablishment("125", "1236"))
	opts := testOptions(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	repos := db.repos()
	reconciler := NewReconciliationService(repos.StagedItems, repos.Employments, opts)

	withdrawn := e2eRow
	withdrawn.withdrawal = "W"
	id := stageExtract(t, db, opts, "w.csv", extractCSV(withdrawn))
	_, err := reconciler.Reconcile(context.Background(), id)
	require.NoError(t, err)

	emps := db.employmentList()
	require.Len(t, emps, 1)
	require.True(t, emps[0].WithdrawalConfirmed)
	require.NotNil(t, emps[0].EndDate)
	require.Equal(t, date("2024-03-30"), *emps[0].EndDate)

	id = stageExtract(t, db, opts, "retract.csv", extractCSV(e2eRow))
	res, err := reconciler.Reconcile(context.Background(), id)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Updated)

	emps = db.employmentList()
	require.False(t, emps[0].WithdrawalConfirmed)
	require.Nil(t, emps[0].EndDate)
}

func TestReconcile_StaleOnInsertIsClosed(t *testing.T) {
	db := newMemDB()
	db.addPerson("1234567")
	db.addEstablishment(openEstablishment("125", "1236"))
	opts := testOptions(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	old := e2eRow
	old.end = "31/10/2023"
	id := stageExtract(t, db, opts, "old.csv", extractCSV(old))

	repos := db.repos()
	_, err := NewReconciliationService(repos.StagedItems, repos.Employments, opts).Reconcile(context.Background(), id)
	require.NoError(t, err)

	emps := db.employmentList()
	require.Len(t, emps, 1)
	require.NotNil(t, emps[0].EndDate)
	require.Equal(t, date("2023-10-31"), *emps[0].EndDate)
}

func TestReconcile_EndDateCappedAtExtract(t *testing.T) {
	db := newMemDB()
	db.addPerson("1234567")
	db.addEstablishment(openEstablishment("125", "1236"))
	opts := testOptions(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	future := e2eRow
	future.end = "31/08/2024"
	id := stageExtract(t, db, opts, "future.csv", extractCSV(future))

	repos := db.repos()
	_, err := NewReconciliationService(repos.StagedItems, repos.Employments, opts).Reconcile(context.Background(), id)
	require.NoError(t, err)

	emps := db.employmentList()
	require.Equal(t, date("2024-04-25"), emps[0].LastKnownEmployedDate)
	require.Nil(t, emps[0].EndDate)
}
