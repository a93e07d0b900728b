package loaditem

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Column order of the inbound extract file.
const (
	ColTrn = iota
	ColNationalInsuranceNumber
	ColDateOfBirth
	ColDateOfDeath
	ColMemberPostcode
	ColMemberEmailAddress
	ColLocalAuthorityCode
	ColEstablishmentNumber
	ColEstablishmentPostcode
	ColEstablishmentEmailAddress
	ColEmploymentStartDate
	ColEmploymentEndDate
	ColFullOrPartTimeIndicator
	ColWithdrawalIndicator
	ColExtractDate
	ColGender

	ColumnCount
)

// LoadItem is one extract row exactly as received, plus the rules it violates.
type LoadItem struct {
	ID        uuid.UUID
	ExtractID uuid.UUID
	RowNumber int

	Trn                       string `validate:"trn"`
	NationalInsuranceNumber   string `validate:"nino"`
	DateOfBirth               string `validate:"tpsdate"`
	DateOfDeath               string `validate:"omitempty,tpsdate"`
	MemberPostcode            string `validate:"omitempty,ukpostcode"`
	MemberEmailAddress        string
	LocalAuthorityCode        string `validate:"lacode"`
	EstablishmentNumber       string `validate:"omitempty,estabnumber"`
	EstablishmentPostcode     string `validate:"omitempty,ukpostcode"`
	EstablishmentEmailAddress string
	EmploymentStartDate       string `validate:"tpsdate"`
	EmploymentEndDate         string `validate:"tpsdate"`
	FullOrPartTimeIndicator   string `validate:"fptcode"`
	WithdrawalIndicator       string `validate:"omitempty,withdrawal"`
	ExtractDate               string `validate:"tpsdate"`
	Gender                    string `validate:"gender"`

	Errors    LoadErrors
	CreatedAt time.Time
}

// FromRecord builds an unvalidated LoadItem from a CSV record. Values are trimmed of
// surrounding whitespace; missing trailing columns are treated as empty.
func FromRecord(extractID uuid.UUID, rowNumber int, rec []string, now time.Time) LoadItem {
	get := func(i int) string {
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	return LoadItem{
		ID:                        uuid.New(),
		ExtractID:                 extractID,
		RowNumber:                 rowNumber,
		Trn:                       get(ColTrn),
		NationalInsuranceNumber:   get(ColNationalInsuranceNumber),
		DateOfBirth:               get(ColDateOfBirth),
		DateOfDeath:               get(ColDateOfDeath),
		MemberPostcode:            get(ColMemberPostcode),
		MemberEmailAddress:        get(ColMemberEmailAddress),
		LocalAuthorityCode:        get(ColLocalAuthorityCode),
		EstablishmentNumber:       get(ColEstablishmentNumber),
		EstablishmentPostcode:     get(ColEstablishmentPostcode),
		EstablishmentEmailAddress: get(ColEstablishmentEmailAddress),
		EmploymentStartDate:       get(ColEmploymentStartDate),
		EmploymentEndDate:         get(ColEmploymentEndDate),
		FullOrPartTimeIndicator:   get(ColFullOrPartTimeIndicator),
		WithdrawalIndicator:       get(ColWithdrawalIndicator),
		ExtractDate:               get(ColExtractDate),
		Gender:                    get(ColGender),
		CreatedAt:                 now,
	}
}

type Repository interface {
	InsertBatch(ctx context.Context, items []LoadItem) (int64, error)
	// ListUnpromoted returns the valid rows of an extract that have no staged item yet.
	ListUnpromoted(ctx context.Context, extractID uuid.UUID) ([]LoadItem, error)
	ListInvalid(ctx context.Context, extractID uuid.UUID) ([]LoadItem, error)
	CountByValidity(ctx context.Context, extractID uuid.UUID) (valid int64, invalid int64, err error)
}
