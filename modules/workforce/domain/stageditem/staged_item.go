package stageditem

import (
	"context"
	"strings"
	"time"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/establishment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrInvalidLoadItem = errors.New("load item has format errors")

// StagedItem is the typed form of a valid LoadItem awaiting matching and reconciliation.
type StagedItem struct {
	ID         uuid.UUID
	LoadItemID uuid.UUID
	ExtractID  uuid.UUID
	RowNumber  int

	Trn                       string
	NationalInsuranceNumber   string
	DateOfBirth               time.Time
	DateOfDeath               *time.Time
	MemberPostcode            *string
	MemberEmailAddress        *string
	LocalAuthorityCode        string
	EstablishmentNumber       *string
	EstablishmentPostcode     *string
	EstablishmentEmailAddress *string
	EmploymentStartDate       time.Time
	EmploymentEndDate         time.Time
	EmploymentType            employment.Type
	Withdrawn                 bool
	ExtractDate               time.Time
	Gender                    string

	Result          Result
	PersonID        *uuid.UUID
	EstablishmentID *uuid.UUID
	CreatedAt       time.Time
}

// FromLoadItem promotes a valid LoadItem. Values are carried over unchanged apart from
// typing: dates are parsed, codes become enums and empty optional values become nil.
func FromLoadItem(li loaditem.LoadItem, now time.Time) (StagedItem, error) {
	if li.Errors != loaditem.None {
		return StagedItem{}, errors.Wrapf(ErrInvalidLoadItem, "row %d: %s", li.RowNumber, li.Errors)
	}

	dob, err := loaditem.ParseDate(li.DateOfBirth)
	if err != nil {
		return StagedItem{}, errors.Wrap(err, "date of birth")
	}
	start, err := loaditem.ParseDate(li.EmploymentStartDate)
	if err != nil {
		return StagedItem{}, errors.Wrap(err, "employment start date")
	}
	end, err := loaditem.ParseDate(li.EmploymentEndDate)
	if err != nil {
		return StagedItem{}, errors.Wrap(err, "employment end date")
	}
	extract, err := loaditem.ParseDate(li.ExtractDate)
	if err != nil {
		return StagedItem{}, errors.Wrap(err, "extract date")
	}
	empType, err := employment.ParseTypeCode(li.FullOrPartTimeIndicator)
	if err != nil {
		return StagedItem{}, err
	}

	var dod *time.Time
	if li.DateOfDeath != "" {
		v, err := loaditem.ParseDate(li.DateOfDeath)
		if err != nil {
			return StagedItem{}, errors.Wrap(err, "date of death")
		}
		dod = &v
	}

	return StagedItem{
		ID:                        uuid.New(),
		LoadItemID:                li.ID,
		ExtractID:                 li.ExtractID,
		RowNumber:                 li.RowNumber,
		Trn:                       li.Trn,
		NationalInsuranceNumber:   strings.ToUpper(li.NationalInsuranceNumber),
		DateOfBirth:               dob,
		DateOfDeath:               dod,
		MemberPostcode:            optional(li.MemberPostcode),
		MemberEmailAddress:        optional(li.MemberEmailAddress),
		LocalAuthorityCode:        li.LocalAuthorityCode,
		EstablishmentNumber:       optional(li.EstablishmentNumber),
		EstablishmentPostcode:     optional(li.EstablishmentPostcode),
		EstablishmentEmailAddress: optional(li.EstablishmentEmailAddress),
		EmploymentStartDate:       start,
		EmploymentEndDate:         end,
		EmploymentType:            empType,
		Withdrawn:                 strings.EqualFold(li.WithdrawalIndicator, loaditem.WithdrawalCode),
		ExtractDate:               extract,
		Gender:                    cases.Title(language.BritishEnglish).String(li.Gender),
		Result:                    Pending,
		CreatedAt:                 now,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Key is the natural key of the employment spell this item reports.
func (s StagedItem) Key() string {
	return employment.BuildKey(
		s.Trn,
		s.LocalAuthorityCode,
		deref(s.EstablishmentNumber),
		establishment.NormalizePostcode(deref(s.EstablishmentPostcode)),
		s.EmploymentStartDate,
	)
}

// Observation projects a matched item onto the reconciler's input.
func (s StagedItem) Observation() (employment.Observation, error) {
	if s.PersonID == nil || s.EstablishmentID == nil {
		return employment.Observation{}, errors.Errorf("staged item %s is not fully matched", s.ID)
	}
	return employment.Observation{
		PersonID:                *s.PersonID,
		EstablishmentID:         *s.EstablishmentID,
		Key:                     s.Key(),
		StartDate:               s.EmploymentStartDate,
		EndDate:                 s.EmploymentEndDate,
		ExtractDate:             s.ExtractDate,
		EmploymentType:          s.EmploymentType,
		Withdrawn:               s.Withdrawn,
		NationalInsuranceNumber: optional(s.NationalInsuranceNumber),
		PersonPostcode:          s.MemberPostcode,
		PersonEmailAddress:      s.MemberEmailAddress,
		EmployerPostcode:        s.EstablishmentPostcode,
		EmployerEmailAddress:    s.EstablishmentEmailAddress,
	}, nil
}

// EstablishmentMatch assigns a matched establishment to a staged item.
type EstablishmentMatch struct {
	ItemID          uuid.UUID
	EstablishmentID uuid.UUID
}

// ItemResult records the terminal result of a staged item.
type ItemResult struct {
	ItemID uuid.UUID
	Result Result
}

type Repository interface {
	InsertBatch(ctx context.Context, items []StagedItem) (int64, error)
	// AssignPersons links pending items to persons by TRN and marks the rest InvalidTrn.
	AssignPersons(ctx context.Context, extractID uuid.UUID) (matched int64, invalid int64, err error)
	ListPending(ctx context.Context, extractID uuid.UUID) ([]StagedItem, error)
	// SetEstablishments links establishments to items that are still pending.
	SetEstablishments(ctx context.Context, matches []EstablishmentMatch) (int64, error)
	// SetResults moves items that are still pending to a terminal result.
	SetResults(ctx context.Context, results []ItemResult) (int64, error)
	// ListReconcilable returns pending items with both person and establishment, in row order.
	ListReconcilable(ctx context.Context, extractID uuid.UUID) ([]StagedItem, error)
	CountByResult(ctx context.Context, extractID uuid.UUID) (map[Result]int64, error)
	ListByExtract(ctx context.Context, extractID uuid.UUID) ([]StagedItem, error)
}
