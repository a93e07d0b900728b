package services

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/establishment"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/extract"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/loaditem"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
	"github.com/DFE-Digital/trs-workforce/pkg/composables"
)

var ErrInvalidConfig = errors.New("invalid service configuration")

func invalidConfig(msg string) error {
	return errors.Wrap(ErrInvalidConfig, msg)
}

type Options struct {
	Logger *logrus.Entry
	// InTx runs fn inside one transaction. Defaults to composables.InTx.
	InTx  func(ctx context.Context, fn func(context.Context) error) error
	Now   func() time.Time
	NewID func() uuid.UUID
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
	if o.InTx == nil {
		o.InTx = composables.InTx
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.NewID == nil {
		o.NewID = uuid.New
	}
}

// Repositories bundles the persistence ports the pipeline works against.
type Repositories struct {
	Extracts       extract.Repository
	LoadItems      loaditem.Repository
	StagedItems    stageditem.Repository
	Establishments establishment.Repository
	Employments    employment.Repository
}

func (r Repositories) validate() error {
	switch {
	case r.Extracts == nil:
		return invalidConfig("extract repository is required")
	case r.LoadItems == nil:
		return invalidConfig("load item repository is required")
	case r.StagedItems == nil:
		return invalidConfig("staged item repository is required")
	case r.Establishments == nil:
		return invalidConfig("establishment repository is required")
	case r.Employments == nil:
		return invalidConfig("employment repository is required")
	}
	return nil
}

func logrusNop() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
