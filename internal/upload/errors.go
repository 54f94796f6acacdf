package upload

import (
	"errors"
	"fmt"
)

// ErrAbandoned is returned by an upload whose session was abandoned while
// it was in flight.
var ErrAbandoned = errors.New("upload abandoned")

// ConcurrentUploadError is returned when an upload is started while another
// one is still running on the same manager.
type ConcurrentUploadError struct {
	State    State
	FileName string
}

func (e *ConcurrentUploadError) Error() string {
	return fmt.Sprintf("upload of %s already %s", e.FileName, e.State)
}

// ChunkTransmissionError reports a chunk the backend did not acknowledge.
type ChunkTransmissionError struct {
	Index int
	Total int
	Err   error
}

func (e *ChunkTransmissionError) Error() string {
	return fmt.Sprintf("chunk %d of %d: %v", e.Index+1, e.Total, e.Err)
}

func (e *ChunkTransmissionError) Unwrap() error { return e.Err }

// FinalizeError reports a failed assembly step after every chunk was sent.
type FinalizeError struct {
	SessionID string
	Err       error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("finalize session %s: %v", e.SessionID, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }
