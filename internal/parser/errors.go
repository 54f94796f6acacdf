package parser

import (
	"errors"
	"fmt"
)

// ErrNoPages is wrapped by ExtractionError when a document has zero pages.
var ErrNoPages = errors.New("document contains no pages")

// ExtractionError reports a document that could not be parsed.
type ExtractionError struct {
	File string
	Page int // 0 when the failure is not tied to a page
	Err  error
}

func (e *ExtractionError) Error() string {
	msg := "extract"
	if e.File != "" {
		msg += " " + e.File
	}
	if e.Page > 0 {
		msg += fmt.Sprintf(" page %d", e.Page)
	}
	return msg + ": " + e.Err.Error()
}

func (e *ExtractionError) Unwrap() error { return e.Err }
