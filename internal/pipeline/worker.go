package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/quizdoc/internal/backend"
	"github.com/dgallion1/quizdoc/internal/upload"
)

// AnalysisFetcher loads a finished analysis by backend file id.
// *backend.Client implements it.
type AnalysisFetcher interface {
	GetAnalysis(ctx context.Context, fileID string) (*backend.AnalysisResponse, error)
}

// Worker processes a single upload job.
type Worker struct {
	fetcher AnalysisFetcher
	log     *slog.Logger
}

func NewWorker(fetcher AnalysisFetcher, log *slog.Logger) *Worker {
	return &Worker{fetcher: fetcher, log: log}
}

// Process uploads the job's file and, in file id mode, fetches the analysis
// it produced.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	if job.uploader == nil {
		job.AddError("no uploader for document")
		job.SetStatus(StatusFailed, "queued")
		return
	}

	// Phase 1: chunked upload and finalize.
	job.SetStatus(StatusUploading, "uploading")
	data := job.FileData()
	res, err := job.uploader.Upload(ctx, upload.File{Name: job.Filename, Data: data}, func(pct int) {
		job.ChunkSent(pct)
	})
	if sess := job.uploader.Session(); sess.TotalChunks > 0 {
		job.SetTotalChunks(sess.TotalChunks)
	}
	if err != nil {
		w.fail(log, job, err)
		return
	}

	// Phase 2: fetch the analysis when the backend only returned an id.
	if res.Analysis == nil && res.FileID != "" {
		job.SetStatus(StatusFetching, "fetching_analysis")
		analysis, err := w.fetcher.GetAnalysis(ctx, res.FileID)
		if err != nil {
			log.Error("fetch analysis failed", "file_id", res.FileID, "error", err)
			job.AddError(fmt.Sprintf("fetch analysis: %s", err))
			job.SetResult(res)
			w.complete(job, res)
			job.SetStatus(StatusPartial, "done")
			return
		}
		res.Analysis = analysis
	}

	if res.Analysis != nil {
		valid, dropped := backend.FilterQuestions(res.Analysis.Questions)
		res.Analysis.Questions = valid
		job.SetQuestions(len(valid), dropped)
		if dropped > 0 {
			log.Warn("dropped invalid questions", "dropped", dropped)
		}
	}

	job.SetResult(res)
	w.complete(job, res)
	log.Info("upload job complete", "session_id", res.SessionID, "file_id", res.FileID)
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) complete(job *Job, res upload.Result) {
	if job.onComplete != nil {
		job.onComplete(res)
	}
}

func (w *Worker) fail(log *slog.Logger, job *Job, err error) {
	var (
		chunkErr    *upload.ChunkTransmissionError
		finalizeErr *upload.FinalizeError
		busyErr     *upload.ConcurrentUploadError
	)
	phase := "uploading"
	switch {
	case errors.Is(err, upload.ErrAbandoned):
		log.Info("upload abandoned")
		job.AddError(err.Error())
		job.SetStatus(StatusAbandoned, "uploading")
		return
	case errors.As(err, &chunkErr):
		phase = fmt.Sprintf("chunk %d/%d", chunkErr.Index+1, chunkErr.Total)
	case errors.As(err, &finalizeErr):
		phase = "finalizing"
	case errors.As(err, &busyErr):
		phase = "queued"
	}
	log.Error("upload job failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
}
