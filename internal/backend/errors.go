package backend

import "fmt"

// AnalysisError is returned when the backend rejects or fails an analysis,
// analysis lookup or quiz generation call.
type AnalysisError struct {
	Op      string // "analyze-pages", "generate-quiz", "analysis"
	Status  int    // HTTP status, 0 when the call never got a response
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend %s: status %d: %s", e.Op, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s: %s", e.Op, e.Message)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// StatusError is returned by upload calls that got a non-2xx response.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}
