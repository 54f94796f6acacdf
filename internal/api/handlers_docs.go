package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/quizdoc/internal/parser"
	"github.com/dgallion1/quizdoc/internal/pipeline"
	"github.com/dgallion1/quizdoc/internal/store"
	"github.com/dgallion1/quizdoc/internal/upload"
)

type documentView struct {
	*store.Document
	PageCount int   `json:"page_count"`
	HasIndex  bool  `json:"has_index"`
	Content   []int `json:"pages_with_content,omitempty"`
}

func viewDocument(d *store.Document) documentView {
	v := documentView{Document: d, PageCount: d.PageCount()}
	if idx := d.Index(); idx != nil {
		v.HasIndex = true
		v.Content = idx.PagesWithContent()
	}
	return v
}

// handleCreateDocument extracts an uploaded file into pages and registers it.
func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if len(data) == 0 {
		jsonError(w, "file is empty", http.StatusBadRequest)
		return
	}

	filename, mtype := resolveType(sanitizeFilename(header.Filename), data)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s (%s)", filepath.Ext(filename), mtype.String()), http.StatusUnsupportedMediaType)
		return
	}

	docID := pipeline.ContentHashHex(data)[:16]
	if existing, err := s.docs.Get(docID); err == nil {
		writeJSON(w, http.StatusOK, viewDocument(existing))
		return
	}

	pages, err := parser.ExtractBytes(data, filename, s.parseOpts)
	if err != nil {
		s.log.Warn("extraction failed", "file", filename, "error", err)
		s.writeError(w, r, err)
		return
	}

	blobKey := docID + strings.ToLower(filepath.Ext(filename))
	if err := s.blobs.Put(r.Context(), blobKey, data, mtype.String()); err != nil {
		s.writeError(w, r, fmt.Errorf("store blob: %w", err))
		return
	}

	doc := &store.Document{
		ID:          docID,
		Name:        filename,
		Size:        int64(len(data)),
		ContentType: mtype.String(),
		BlobKey:     blobKey,
		CreatedAt:   time.Now(),
		Pages:       pages,
		Uploader: upload.NewManager(s.backend, upload.Options{
			ChunkSize: s.cfg.UploadChunkBytes,
			Mode:      s.mode,
			Logger:    s.log.With("doc_id", docID),
		}),
	}
	s.docs.Put(doc)
	s.log.Info("document registered", "doc_id", docID, "file", filename, "pages", len(pages), "mime", mtype.String())

	writeJSON(w, http.StatusCreated, viewDocument(doc))
}

// resolveType sniffs the content type and, when the name carries no
// supported extension, names the file after what was detected.
func resolveType(filename string, data []byte) (string, *mimetype.MIME) {
	mtype := mimetype.Detect(data)
	if parser.IsSupportedExtension(filename) {
		return filename, mtype
	}
	if ext := mtype.Extension(); ext != "" && parser.IsSupportedExtension("x"+ext) {
		return strings.TrimSuffix(filename, filepath.Ext(filename)) + ext, mtype
	}
	return filename, mtype
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.docs.List()
	out := make([]documentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, viewDocument(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewDocument(doc))
}

// handleDeleteDocument removes a document with its quizzes and blob.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.Delete(chi.URLParam(r, "docID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePages returns every page, or one page with ?page=N.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "page must be a number", http.StatusBadRequest)
			return
		}
		page, err := doc.Page(n)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": doc.Pages})
}
