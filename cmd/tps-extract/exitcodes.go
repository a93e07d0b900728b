package main

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/extract"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/stageditem"
	"github.com/DFE-Digital/trs-workforce/modules/workforce/services"
	"github.com/DFE-Digital/trs-workforce/pkg/objectstore"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
	exitStorage    = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// classify assigns an exit code to a stage error. fallback is used for errors that
// are neither input problems nor storage failures.
func classify(err error, fallback int) error {
	if err == nil {
		return nil
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, extract.ErrAlreadyImported),
		errors.Is(err, extract.ErrEmptyFilename),
		errors.Is(err, extract.ErrNotFound),
		errors.Is(err, services.ErrInvalidHeader),
		errors.Is(err, stageditem.ErrInvalidLoadItem):
		return withCode(exitValidation, err)
	case errors.Is(err, objectstore.ErrNotFound),
		errors.Is(err, objectstore.ErrInvalidKey):
		return withCode(exitStorage, err)
	case errors.Is(err, context.Canceled):
		return withCode(1, err)
	}
	var opErr *objectstore.OpError
	if errors.As(err, &opErr) {
		return withCode(exitStorage, err)
	}
	return withCode(fallback, err)
}

func parseExtractID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, withCode(exitUsage, errors.Wrap(err, "invalid --extract"))
	}
	return id, nil
}
