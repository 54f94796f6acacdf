// Package upload sends a file to the analysis backend in fixed-size chunks
// and asks the backend to assemble it.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/dgallion1/quizdoc/internal/backend"
	"github.com/dgallion1/quizdoc/internal/chunker"
)

// State is the lifecycle state of an upload session.
type State string

const (
	Idle       State = "idle"
	Chunking   State = "chunking"
	Uploading  State = "uploading"
	Finalizing State = "finalizing"
	Completed  State = "completed"
	Failed     State = "failed"
)

// canStart reports whether a new upload may begin from s.
func (s State) canStart() bool {
	return s == Idle || s == Completed || s == Failed
}

// Mode selects which finalize response the manager expects.
type Mode int

const (
	// ModeAnalysis expects the finished analysis in the finalize response.
	ModeAnalysis Mode = iota
	// ModeFileID expects a file id to fetch the analysis with later.
	ModeFileID
)

// ParseMode maps "analysis" and "file_id" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "analysis", "":
		return ModeAnalysis, nil
	case "file_id":
		return ModeFileID, nil
	}
	return 0, fmt.Errorf("unknown finalize mode %q", s)
}

func (m Mode) String() string {
	if m == ModeFileID {
		return "file_id"
	}
	return "analysis"
}

// Transport carries chunks and the finalize call to the backend.
// *backend.Client implements it.
type Transport interface {
	UploadChunk(ctx context.Context, p backend.Part) error
	Finalize(ctx context.Context, req backend.FinalizeRequest) (backend.FinalizeResponse, error)
}

// File is the input of one upload.
type File struct {
	Name string
	Data []byte
}

// Session is a snapshot of the current upload session.
type Session struct {
	FileID             string `json:"file_id"` // session id sent with every chunk
	FileName           string `json:"file_name"`
	TotalChunks        int    `json:"total_chunks"`
	ChunksAcknowledged int    `json:"chunks_acknowledged"`
	State              State  `json:"state"`
}

// Result is a completed upload. Exactly one of FileID and Analysis is set,
// depending on the manager's Mode.
type Result struct {
	SessionID string                    `json:"session_id"`
	FileID    string                    `json:"file_id,omitempty"`
	Analysis  *backend.AnalysisResponse `json:"analysis,omitempty"`
}

// Options configures a Manager.
type Options struct {
	ChunkSize int64
	Mode      Mode
	Logger    *slog.Logger

	// NewSessionID overrides session id generation. Defaults to UUIDv7.
	NewSessionID func() string
}

// Manager runs one upload at a time. It is safe for concurrent use; a
// second Upload while one is running fails with *ConcurrentUploadError.
type Manager struct {
	transport Transport
	opts      Options
	log       *slog.Logger

	mu      sync.Mutex
	session Session
	gen     uint64 // bumped per session; stale completions compare against it
	cancel  context.CancelFunc
}

// NewManager creates an idle manager.
func NewManager(t Transport, opts Options) *Manager {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1 << 20
	}
	if opts.NewSessionID == nil {
		opts.NewSessionID = newSessionID
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		transport: t,
		opts:      opts,
		log:       log,
		session:   Session{State: Idle},
	}
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Upload sends f in chunks, strictly one after another, then finalizes.
// onProgress, if set, gets the percentage of bytes acknowledged after every
// chunk; values never decrease and the last one is 100. It is called with
// the manager locked and must not call back into the manager.
//
// Any failure aborts the whole upload. Nothing is retried.
func (m *Manager) Upload(ctx context.Context, f File, onProgress func(int)) (Result, error) {
	m.mu.Lock()
	if !m.session.State.canStart() {
		err := &ConcurrentUploadError{State: m.session.State, FileName: m.session.FileName}
		m.mu.Unlock()
		return Result{}, err
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.session = Session{FileName: f.Name, State: Chunking}
	m.mu.Unlock()
	defer cancel()

	size := int64(len(f.Data))
	ranges, err := chunker.Plan(size, m.opts.ChunkSize)
	if err != nil {
		m.fail(gen)
		return Result{}, fmt.Errorf("plan chunks for %s: %w", f.Name, err)
	}
	sessionID := m.opts.NewSessionID()
	total := len(ranges)

	if !m.update(gen, func(s *Session) {
		s.FileID = sessionID
		s.TotalChunks = total
		s.State = Uploading
	}) {
		return Result{}, ErrAbandoned
	}

	log := m.log.With("session_id", sessionID, "file", f.Name, "chunks", total)
	log.Info("upload started", "bytes", size)

	var sent int64
	for _, r := range ranges {
		err := m.transport.UploadChunk(ctx, backend.Part{
			SessionID:   sessionID,
			FileName:    f.Name,
			ChunkIndex:  r.Index,
			TotalChunks: total,
			Data:        f.Data[r.Start:r.End],
		})
		if err != nil {
			if m.abandoned(gen) {
				return Result{}, ErrAbandoned
			}
			m.fail(gen)
			log.Error("chunk failed", "chunk", r.Index, "error", err)
			return Result{}, &ChunkTransmissionError{Index: r.Index, Total: total, Err: err}
		}

		sent += r.Len()
		pct := int(math.Round(float64(sent) / float64(size) * 100))
		if !m.update(gen, func(s *Session) {
			s.ChunksAcknowledged++
			if onProgress != nil {
				onProgress(pct)
			}
		}) {
			return Result{}, ErrAbandoned
		}
		log.Debug("chunk acknowledged", "chunk", r.Index, "progress", pct)
	}

	if !m.update(gen, func(s *Session) { s.State = Finalizing }) {
		return Result{}, ErrAbandoned
	}

	resp, err := m.transport.Finalize(ctx, backend.FinalizeRequest{
		SessionID:   sessionID,
		FileName:    f.Name,
		TotalChunks: total,
	})
	if err == nil {
		err = m.checkResponse(resp)
	}
	if err != nil {
		if m.abandoned(gen) {
			return Result{}, ErrAbandoned
		}
		m.fail(gen)
		log.Error("finalize failed", "error", err)
		return Result{}, &FinalizeError{SessionID: sessionID, Err: err}
	}

	if !m.update(gen, func(s *Session) { s.State = Completed }) {
		return Result{}, ErrAbandoned
	}
	log.Info("upload completed", "mode", m.opts.Mode.String())

	res := Result{SessionID: sessionID}
	if m.opts.Mode == ModeFileID {
		res.FileID = resp.FileID
	} else {
		res.Analysis = resp.Analysis
	}
	return res, nil
}

// checkResponse requires the field of the configured mode.
func (m *Manager) checkResponse(resp backend.FinalizeResponse) error {
	switch m.opts.Mode {
	case ModeFileID:
		if resp.FileID == "" {
			return errors.New("response has no file_id")
		}
	default:
		if resp.Analysis == nil {
			return errors.New("response has no analysis")
		}
	}
	return nil
}

// Abandon discards the in-flight session and resets the manager to Idle.
// The abandoned upload stops at its next step and never touches the new
// session or calls its progress callback again.
func (m *Manager) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.gen++
	m.session = Session{State: Idle}
}

// update applies fn to the session if gen is still current.
func (m *Manager) update(gen uint64, fn func(*Session)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	fn(&m.session)
	return true
}

func (m *Manager) fail(gen uint64) {
	m.update(gen, func(s *Session) { s.State = Failed })
}

func (m *Manager) abandoned(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen != m.gen
}
