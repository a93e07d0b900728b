package establishment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	SourceGIAS = "GIAS"
	SourceTPS  = "TPS"
)

// Status is the GIAS establishment status code.
type Status int16

const (
	StatusOpen                Status = 1
	StatusClosed              Status = 2
	StatusOpenProposedToClose Status = 3
	StatusProposedToOpen      Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusOpenProposedToClose:
		return "open_proposed_to_close"
	case StatusProposedToOpen:
		return "proposed_to_open"
	default:
		return "unknown"
	}
}

// Establishment is one version of an establishment record. A newer version of the same
// establishment is reachable through SupersededByID.
type Establishment struct {
	ID                  uuid.UUID
	Source              string
	URN                 *int32
	LaCode              string
	EstablishmentNumber *string
	Name                string
	Postcode            *string
	Status              *Status
	IsHigherEducation   bool
	SupersededByID      *uuid.UUID
	CreatedAt           time.Time
}

func (e Establishment) IsOpen() bool {
	return e.Status != nil && *e.Status == StatusOpen
}

func (e Establishment) IsClosed() bool {
	return e.Status != nil && *e.Status == StatusClosed
}

// NormalizePostcode upper-cases a postcode and strips all whitespace.
func NormalizePostcode(p string) string {
	return strings.ToUpper(strings.Join(strings.Fields(p), ""))
}

type Repository interface {
	ListByLaCodes(ctx context.Context, laCodes []string) ([]Establishment, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Establishment, error)
}
