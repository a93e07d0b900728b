package stageditem

import (
	"testing"
	"time"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func validLoadItem() loaditem.LoadItem {
	return loaditem.LoadItem{
		ID:                      uuid.New(),
		ExtractID:               uuid.New(),
		RowNumber:               7,
		Trn:                     "1234567",
		NationalInsuranceNumber: "ab123456c",
		DateOfBirth:             "01/02/1980",
		MemberPostcode:          "SW1A 1AA",
		LocalAuthorityCode:      "125",
		EstablishmentNumber:     "1236",
		EmploymentStartDate:     "03/02/2023",
		EmploymentEndDate:       "30/03/2024",
		FullOrPartTimeIndicator: "PTR",
		ExtractDate:             "25/04/2024",
		Gender:                  "fEMALE",
	}
}

func TestFromLoadItem_TypesValues(t *testing.T) {
	li := validLoadItem()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	got, err := FromLoadItem(li, now)
	require.NoError(t, err)

	require.Equal(t, li.ID, got.LoadItemID)
	require.Equal(t, li.ExtractID, got.ExtractID)
	require.Equal(t, 7, got.RowNumber)
	require.Equal(t, "1234567", got.Trn)
	require.Equal(t, "AB123456C", got.NationalInsuranceNumber)
	require.Equal(t, time.Date(1980, 2, 1, 0, 0, 0, 0, time.UTC), got.DateOfBirth)
	require.Nil(t, got.DateOfDeath)
	require.Equal(t, "SW1A 1AA", *got.MemberPostcode)
	require.Nil(t, got.MemberEmailAddress)
	require.Equal(t, "1236", *got.EstablishmentNumber)
	require.Nil(t, got.EstablishmentPostcode)
	require.Equal(t, time.Date(2023, 2, 3, 0, 0, 0, 0, time.UTC), got.EmploymentStartDate)
	require.Equal(t, time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC), got.EmploymentEndDate)
	require.Equal(t, time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC), got.ExtractDate)
	require.Equal(t, employment.PartTimeRegular, got.EmploymentType)
	require.False(t, got.Withdrawn)
	require.Equal(t, "Female", got.Gender)
	require.Equal(t, Pending, got.Result)
	require.Nil(t, got.PersonID)
	require.Nil(t, got.EstablishmentID)
}

func TestFromLoadItem_RejectsInvalid(t *testing.T) {
	li := validLoadItem()
	li.Errors = loaditem.TrnIncorrectFormat

	_, err := FromLoadItem(li, time.Now())
	require.ErrorIs(t, err, ErrInvalidLoadItem)
}

func TestFromLoadItem_Withdrawal(t *testing.T) {
	li := validLoadItem()
	li.WithdrawalIndicator = "W"
	li.DateOfDeath = "02/03/2024"

	got, err := FromLoadItem(li, time.Now())
	require.NoError(t, err)
	require.True(t, got.Withdrawn)
	require.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), *got.DateOfDeath)
}

func TestStagedItem_KeyAndObservation(t *testing.T) {
	got, err := FromLoadItem(validLoadItem(), time.Now())
	require.NoError(t, err)
	require.Equal(t, "1234567.125.1236.20230203", got.Key())

	_, err = got.Observation()
	require.Error(t, err)

	personID, estID := uuid.New(), uuid.New()
	got.PersonID, got.EstablishmentID = &personID, &estID
	obs, err := got.Observation()
	require.NoError(t, err)
	require.Equal(t, personID, obs.PersonID)
	require.Equal(t, estID, obs.EstablishmentID)
	require.Equal(t, got.Key(), obs.Key)
	require.Equal(t, "AB123456C", *obs.NationalInsuranceNumber)
	require.Equal(t, got.MemberPostcode, obs.PersonPostcode)
}

func TestResult_IsTerminal(t *testing.T) {
	require.False(t, Pending.IsTerminal())
	for _, r := range Results[1:] {
		require.True(t, r.IsTerminal(), r)
	}
	require.False(t, Result("bogus").IsValid())
}
