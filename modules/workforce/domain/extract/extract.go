package extract

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("extract not found")
	ErrAlreadyImported = errors.New("extract file already imported")
	ErrEmptyFilename   = errors.New("extract filename is required")
)

// Extract is one received file. It is never mutated after creation.
type Extract struct {
	ID        uuid.UUID
	Filename  string
	CreatedAt time.Time
}

// New registers a received file. Filename is the object name without directory prefix.
func New(filename string, now time.Time) (Extract, error) {
	name := path.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		return Extract{}, ErrEmptyFilename
	}
	return Extract{
		ID:        uuid.New(),
		Filename:  name,
		CreatedAt: now,
	}, nil
}

type Repository interface {
	Create(ctx context.Context, e Extract) error
	GetByID(ctx context.Context, id uuid.UUID) (Extract, error)
	GetByFilename(ctx context.Context, filename string) (Extract, error)
	List(ctx context.Context) ([]Extract, error)
}
