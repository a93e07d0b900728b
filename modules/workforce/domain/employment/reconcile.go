package employment

import (
	"time"

	"github.com/google/uuid"
)

// Outcome is what reconciling one observation did to the canonical history.
type Outcome int

const (
	Added Outcome = iota + 1
	Updated
	NoChange
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Updated:
		return "updated"
	case NoChange:
		return "no_change"
	default:
		return "unknown"
	}
}

// Observation is a matched staged row reduced to what reconciliation needs.
type Observation struct {
	PersonID        uuid.UUID
	EstablishmentID uuid.UUID
	Key             string

	StartDate      time.Time
	EndDate        time.Time
	ExtractDate    time.Time
	EmploymentType Type
	Withdrawn      bool

	NationalInsuranceNumber *string
	PersonPostcode          *string
	PersonEmailAddress      *string
	EmployerPostcode        *string
	EmployerEmailAddress    *string
}

// Reconcile merges obs into existing (nil when the key is unseen) and returns the
// next state of the employment. existing is never modified. For NoChange the
// returned value equals *existing.
func Reconcile(existing *Employment, obs Observation, newID func() uuid.UUID, now time.Time) (Employment, Outcome) {
	capped := CapToExtractDate(obs.EndDate, obs.ExtractDate)
	extract := DateOnly(obs.ExtractDate)

	if existing == nil {
		e := Employment{
			ID:                      newID(),
			PersonID:                obs.PersonID,
			EstablishmentID:         obs.EstablishmentID,
			StartDate:               DateOnly(obs.StartDate),
			LastKnownEmployedDate:   capped,
			LastExtractDate:         extract,
			EmploymentType:          obs.EmploymentType,
			WithdrawalConfirmed:     obs.Withdrawn,
			NationalInsuranceNumber: obs.NationalInsuranceNumber,
			PersonPostcode:          obs.PersonPostcode,
			PersonEmailAddress:      obs.PersonEmailAddress,
			EmployerPostcode:        obs.EmployerPostcode,
			EmployerEmailAddress:    obs.EmployerEmailAddress,
			Key:                     obs.Key,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		e.EndDate = endDateFor(obs.Withdrawn, capped, extract)
		return e, Added
	}

	// A late, older extract is judged against the newest extract already seen.
	latest := maxDate(DateOnly(existing.LastExtractDate), extract)

	next := *existing
	next.LastKnownEmployedDate = maxDate(DateOnly(existing.LastKnownEmployedDate), capped)
	next.WithdrawalConfirmed = obs.Withdrawn
	next.EndDate = endDateFor(obs.Withdrawn, next.LastKnownEmployedDate, latest)
	next.EmploymentType = obs.EmploymentType
	next.NationalInsuranceNumber = obs.NationalInsuranceNumber
	next.PersonPostcode = obs.PersonPostcode
	next.PersonEmailAddress = obs.PersonEmailAddress
	next.EmployerPostcode = obs.EmployerPostcode
	next.EmployerEmailAddress = obs.EmployerEmailAddress

	if !changed(existing, &next) {
		return *existing, NoChange
	}

	next.LastExtractDate = latest
	next.UpdatedAt = now
	return next, Updated
}

// endDateFor applies the withdrawal and staleness rules. A withdrawal always closes the
// spell at its last known date; otherwise it is closed only when stale.
func endDateFor(withdrawn bool, lastKnown, extract time.Time) *time.Time {
	if withdrawn || IsStale(lastKnown, extract, IngestStaleMonths) {
		d := lastKnown
		return &d
	}
	return nil
}

func changed(a, b *Employment) bool {
	return !DateOnly(a.LastKnownEmployedDate).Equal(b.LastKnownEmployedDate) ||
		a.WithdrawalConfirmed != b.WithdrawalConfirmed ||
		!equalDatePtr(a.EndDate, b.EndDate) ||
		a.EmploymentType != b.EmploymentType ||
		!equalStringPtr(a.NationalInsuranceNumber, b.NationalInsuranceNumber) ||
		!equalStringPtr(a.PersonPostcode, b.PersonPostcode) ||
		!equalStringPtr(a.PersonEmailAddress, b.PersonEmailAddress) ||
		!equalStringPtr(a.EmployerPostcode, b.EmployerPostcode) ||
		!equalStringPtr(a.EmployerEmailAddress, b.EmployerEmailAddress)
}

func equalDatePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return DateOnly(*a).Equal(DateOnly(*b))
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
