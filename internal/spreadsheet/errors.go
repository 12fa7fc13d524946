package spreadsheet

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrLegacyFormat      = errors.New("legacy .xls workbooks are not supported, save the file as .xlsx")
	ErrNoSheets          = errors.New("workbook has no sheets")
	ErrNoData            = errors.New("no data rows found in file")
)

// ParseError reports a file that could not be read or held no usable rows
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(fileName string, err error) error {
	return &ParseError{FileName: fileName, Err: err}
}
