package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/quizdoc/internal/pipeline"
	"github.com/dgallion1/quizdoc/internal/upload"
)

// handleStartUpload queues a chunked upload of the document to the
// analysis backend. A document has at most one upload in flight.
func (s *Server) handleStartUpload(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess := doc.Uploader.Session()
	if active := s.orchestrator.ActiveJob(doc.ID); active != nil || busy(sess.State) {
		s.writeError(w, r, &upload.ConcurrentUploadError{State: sess.State, FileName: doc.Name})
		return
	}

	data, err := s.blobs.Get(r.Context(), doc.BlobKey)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("load blob: %w", err))
		return
	}

	job := pipeline.NewJob(doc.ID, doc.Name, data, doc.Uploader, doc.SetRemote)
	if err := s.orchestrator.Submit(job); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"doc_id":   job.DocID,
		"status":   pipeline.StatusQueued,
		"poll_url": fmt.Sprintf("/api/uploads/%s/status", job.ID),
	})
}

func busy(st upload.State) bool {
	return st == upload.Chunking || st == upload.Uploading || st == upload.Finalizing
}

func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleUploadSession reports the document's upload session and the last
// completed result.
func (s *Server) handleUploadSession(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := map[string]any{"session": doc.Uploader.Session()}
	if res, ok := doc.Remote(); ok {
		resp["result"] = res
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAbandonUpload drops the in-flight session and resets to idle.
func (s *Server) handleAbandonUpload(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc.Uploader.Abandon()
	s.log.Info("upload abandoned", "doc_id", doc.ID)
	w.WriteHeader(http.StatusNoContent)
}
