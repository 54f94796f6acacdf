package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/quizdoc/internal/upload"
)

// JobStatus represents the state of a remote upload job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusUploading JobStatus = "uploading"
	StatusFetching  JobStatus = "fetching_analysis"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
	StatusAbandoned JobStatus = "abandoned"
)

// Job tracks one chunked upload of a document to the analysis backend.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData   []byte
	uploader   *upload.Manager
	result     *upload.Result
	onComplete func(upload.Result)
	errors     []string
}

// Progress tracks upload progress.
type Progress struct {
	Percent        int      `json:"percent"`
	TotalChunks    int      `json:"total_chunks"`
	ChunksSent     int      `json:"chunks_sent"`
	QuestionsValid int      `json:"questions_valid"`
	QuestionsDrop  int      `json:"questions_dropped"`
	Errors         []string `json:"errors"`
}

// NewJob creates a queued job that uploads data with the document's
// manager. onComplete, if set, receives the result of a successful upload.
func NewJob(docID, filename string, data []byte, uploader *upload.Manager, onComplete func(upload.Result)) *Job {
	now := time.Now()
	return &Job{
		ID:         uuid.NewString(),
		DocID:      docID,
		Status:     StatusQueued,
		Phase:      "queued",
		Filename:   filename,
		CreatedAt:  now,
		UpdatedAt:  now,
		fileData:   data,
		uploader:   uploader,
		onComplete: onComplete,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// ActiveForDoc returns a queued or running job for docID, or nil.
func (s *JobStore) ActiveForDoc(docID string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.DocID == docID && job.Active() {
			return job
		}
	}
	return nil
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// Active reports whether the job is queued or running.
func (j *Job) Active() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status == StatusQueued || j.Status == StatusUploading || j.Status == StatusFetching
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotalChunks records total chunk count.
func (j *Job) SetTotalChunks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalChunks = n
	j.UpdatedAt = time.Now()
}

// ChunkSent records one acknowledged chunk and the new percentage.
func (j *Job) ChunkSent(percent int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ChunksSent++
	if percent > j.Progress.Percent {
		j.Progress.Percent = percent
	}
	j.UpdatedAt = time.Now()
}

// SetQuestions records how many backend questions passed validation.
func (j *Job) SetQuestions(valid, dropped int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.QuestionsValid = valid
	j.Progress.QuestionsDrop = dropped
	j.UpdatedAt = time.Now()
}

// SetResult stores the upload result.
func (j *Job) SetResult(r upload.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = &r
	j.UpdatedAt = time.Now()
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string         `json:"job_id"`
	DocID    string         `json:"doc_id"`
	Status   JobStatus      `json:"status"`
	Phase    string         `json:"phase"`
	Filename string         `json:"filename"`
	Progress Progress       `json:"progress"`
	Result   *upload.Result `json:"result,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	snap := JobSnapshot{
		ID:       j.ID,
		DocID:    j.DocID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Progress: j.Progress,
	}
	snap.Progress.Errors = errs
	if j.result != nil {
		r := *j.result
		snap.Result = &r
	}
	return snap
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
