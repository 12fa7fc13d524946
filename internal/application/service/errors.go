package service

import (
	"errors"
	"fmt"

	"github.com/garyjia/sales-insight/internal/domain/entity"
)

// Logger is the logging surface services depend on
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("already exists")
)

// DuplicateImportError rejects a file that was already imported
type DuplicateImportError struct {
	FileHash         string
	ExistingImportID string
	Period           entity.Period
}

func (e *DuplicateImportError) Error() string {
	return fmt.Sprintf("file already imported as %s (%d/%d)",
		e.ExistingImportID, e.Period.Month, e.Period.Year)
}

// StrictValidationError rejects an import with row-level errors when strict
// mode is on
type StrictValidationError struct {
	Report *entity.ValidationReport
}

func (e *StrictValidationError) Error() string {
	return fmt.Sprintf("strict mode: %d validation errors", len(e.Report.Errors))
}

func notFound(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
