package employment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("employment not found")

// Employment is one canonical spell of a person at an establishment.
type Employment struct {
	ID              uuid.UUID
	PersonID        uuid.UUID
	EstablishmentID uuid.UUID

	StartDate             time.Time
	EndDate               *time.Time
	LastKnownEmployedDate time.Time
	LastExtractDate       time.Time
	EmploymentType        Type
	WithdrawalConfirmed   bool

	NationalInsuranceNumber *string
	PersonPostcode          *string
	PersonEmailAddress      *string
	EmployerPostcode        *string
	EmployerEmailAddress    *string

	Key       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repoint moves an employment onto a newer version of its establishment.
type Repoint struct {
	EmploymentID        uuid.UUID
	FromEstablishmentID uuid.UUID
	ToEstablishmentID   uuid.UUID
}

// SnapshotRow is one employment joined with its person and establishment for export.
type SnapshotRow struct {
	Employment          Employment
	TRN                 string
	EstablishmentSource string
	EstablishmentURN    *int32
	EstablishmentName   string
}

type Repository interface {
	GetByKeys(ctx context.Context, keys []string) (map[string]Employment, error)
	InsertBatch(ctx context.Context, items []Employment) (int64, error)
	UpdateBatch(ctx context.Context, items []Employment) (int64, error)
	// ListOnClosedEstablishments returns employments attached to a closed establishment
	// version together with their current establishment id.
	ListOnClosedEstablishments(ctx context.Context) ([]Employment, error)
	RepointEstablishments(ctx context.Context, repoints []Repoint, now time.Time) (int64, error)
	CloseStale(ctx context.Context, months int, now time.Time) (int64, error)
	StreamSnapshot(ctx context.Context, fn func(SnapshotRow) error) error
}
