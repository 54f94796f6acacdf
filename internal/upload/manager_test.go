package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/quizdoc/internal/backend"
)

type fakeTransport struct {
	mu        sync.Mutex
	parts     []backend.Part
	finalized []backend.FinalizeRequest

	failAt   int // chunk index that fails, -1 for none
	response backend.FinalizeResponse
	finalErr error

	entered chan struct{} // receives once per chunk call when set
	release chan struct{} // chunk calls wait on it when set
}

func newFake() *fakeTransport {
	return &fakeTransport{
		failAt:   -1,
		response: backend.FinalizeResponse{Analysis: &backend.AnalysisResponse{}},
	}
}

func (f *fakeTransport) UploadChunk(ctx context.Context, p backend.Part) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ChunkIndex == f.failAt {
		return errors.New("connection reset")
	}
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	p.Data = data
	f.parts = append(f.parts, p)
	return nil
}

func (f *fakeTransport) Finalize(ctx context.Context, req backend.FinalizeRequest) (backend.FinalizeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = append(f.finalized, req)
	return f.response, f.finalErr
}

func fixedID(id string) func() string { return func() string { return id } }

func TestUpload_SendsChunksInOrder(t *testing.T) {
	ft := newFake()
	m := NewManager(ft, Options{ChunkSize: 3, NewSessionID: fixedID("sess-1")})
	data := []byte("0123456789")

	var progress []int
	res, err := m.Upload(context.Background(), File{Name: "book.pdf", Data: data}, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	require.Len(t, ft.parts, 4)
	var rebuilt bytes.Buffer
	for i, p := range ft.parts {
		assert.Equal(t, i, p.ChunkIndex)
		assert.Equal(t, 4, p.TotalChunks)
		assert.Equal(t, "sess-1", p.SessionID)
		assert.Equal(t, "book.pdf", p.FileName)
		rebuilt.Write(p.Data)
	}
	assert.Equal(t, data, rebuilt.Bytes())

	assert.Equal(t, []int{30, 60, 90, 100}, progress)
	require.Len(t, ft.finalized, 1)
	assert.Equal(t, backend.FinalizeRequest{SessionID: "sess-1", FileName: "book.pdf", TotalChunks: 4}, ft.finalized[0])

	assert.Equal(t, "sess-1", res.SessionID)
	assert.NotNil(t, res.Analysis)
	assert.Empty(t, res.FileID)

	s := m.Session()
	assert.Equal(t, Completed, s.State)
	assert.Equal(t, 4, s.ChunksAcknowledged)
	assert.Equal(t, 4, s.TotalChunks)
	assert.Equal(t, "sess-1", s.FileID)
}

func TestUpload_ProgressRounding(t *testing.T) {
	m := NewManager(newFake(), Options{ChunkSize: 1})
	var progress []int
	_, err := m.Upload(context.Background(), File{Name: "a.txt", Data: []byte("abc")}, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{33, 67, 100}, progress)
}

func TestUpload_FileIDMode(t *testing.T) {
	ft := newFake()
	ft.response = backend.FinalizeResponse{FileID: "file-9"}
	m := NewManager(ft, Options{ChunkSize: 4, Mode: ModeFileID})

	res, err := m.Upload(context.Background(), File{Name: "a.pdf", Data: []byte("abcdef")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "file-9", res.FileID)
	assert.Nil(t, res.Analysis)
	assert.NotEmpty(t, res.SessionID)
}

func TestUpload_FinalizeMissingField(t *testing.T) {
	ft := newFake()
	ft.response = backend.FinalizeResponse{FileID: "file-9"}
	m := NewManager(ft, Options{ChunkSize: 4, Mode: ModeAnalysis})

	_, err := m.Upload(context.Background(), File{Name: "a.pdf", Data: []byte("abcdef")}, nil)
	var fe *FinalizeError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, Failed, m.Session().State)

	// A failed session does not block the next upload.
	ft.response = backend.FinalizeResponse{Analysis: &backend.AnalysisResponse{}}
	_, err = m.Upload(context.Background(), File{Name: "a.pdf", Data: []byte("abcdef")}, nil)
	require.NoError(t, err)
}

func TestUpload_FinalizeError(t *testing.T) {
	ft := newFake()
	ft.finalErr = errors.New("assembly failed")
	m := NewManager(ft, Options{ChunkSize: 4})

	_, err := m.Upload(context.Background(), File{Name: "a.pdf", Data: []byte("abcdef")}, nil)
	var fe *FinalizeError
	require.ErrorAs(t, err, &fe)
	assert.ErrorContains(t, err, "assembly failed")
	assert.Equal(t, Failed, m.Session().State)
}

func TestUpload_ChunkFailureAborts(t *testing.T) {
	ft := newFake()
	ft.failAt = 1
	m := NewManager(ft, Options{ChunkSize: 2})

	var progress []int
	_, err := m.Upload(context.Background(), File{Name: "a.pdf", Data: []byte("abcdefgh")}, func(p int) {
		progress = append(progress, p)
	})
	var ce *ChunkTransmissionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Index)
	assert.Equal(t, 4, ce.Total)

	assert.Len(t, ft.parts, 1)
	assert.Empty(t, ft.finalized)
	assert.Equal(t, []int{25}, progress)

	s := m.Session()
	assert.Equal(t, Failed, s.State)
	assert.Equal(t, 1, s.ChunksAcknowledged)
}

func TestUpload_EmptyFile(t *testing.T) {
	ft := newFake()
	m := NewManager(ft, Options{ChunkSize: 2})
	_, err := m.Upload(context.Background(), File{Name: "empty.pdf"}, nil)
	require.Error(t, err)
	assert.Equal(t, Failed, m.Session().State)
	assert.Empty(t, ft.parts)
}

func TestUpload_ConcurrentGuard(t *testing.T) {
	ft := newFake()
	ft.entered = make(chan struct{}, 16)
	ft.release = make(chan struct{})
	m := NewManager(ft, Options{ChunkSize: 2, NewSessionID: fixedID("first")})

	done := make(chan error, 1)
	go func() {
		_, err := m.Upload(context.Background(), File{Name: "first.pdf", Data: []byte("abcd")}, nil)
		done <- err
	}()
	<-ft.entered
	assert.Equal(t, Uploading, m.Session().State)

	_, err := m.Upload(context.Background(), File{Name: "second.pdf", Data: []byte("wxyz")}, nil)
	var ce *ConcurrentUploadError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, Uploading, ce.State)
	assert.Equal(t, "first.pdf", ce.FileName)

	close(ft.release)
	require.NoError(t, <-done)

	for _, p := range ft.parts {
		assert.Equal(t, "first", p.SessionID)
		assert.Equal(t, "first.pdf", p.FileName)
	}
	assert.Len(t, ft.parts, 2)
}

func TestUpload_AbandonIsolatesSession(t *testing.T) {
	ft := newFake()
	ft.entered = make(chan struct{}, 16)
	ft.release = make(chan struct{})
	m := NewManager(ft, Options{ChunkSize: 2})

	var mu sync.Mutex
	var progress []int
	done := make(chan error, 1)
	go func() {
		_, err := m.Upload(context.Background(), File{Name: "old.pdf", Data: []byte("abcd")}, func(p int) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		})
		done <- err
	}()
	<-ft.entered

	m.Abandon()
	assert.Equal(t, Session{State: Idle}, m.Session())

	err := <-done
	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, Session{State: Idle}, m.Session())
	mu.Lock()
	assert.Empty(t, progress)
	mu.Unlock()

	// A fresh upload works after abandoning.
	ft.entered, ft.release = nil, nil
	_, err = m.Upload(context.Background(), File{Name: "new.pdf", Data: []byte("wxyz")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "new.pdf", m.Session().FileName)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"analysis": ModeAnalysis, "": ModeAnalysis, "file_id": ModeFileID} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("both")
	assert.Error(t, err)
	assert.Equal(t, "file_id", fmt.Sprint(ModeFileID))
}
