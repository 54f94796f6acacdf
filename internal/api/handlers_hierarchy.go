package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/quizdoc/internal/doctree"
	"github.com/dgallion1/quizdoc/internal/store"
)

type selectionRequest struct {
	Paths []string `json:"paths" validate:"required,min=1,unique,dive,required"`
}

// indexedDocument loads a document and its hierarchy index.
func (s *Server) indexedDocument(w http.ResponseWriter, r *http.Request) (*store.Document, *doctree.Index, bool) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, nil, false
	}
	idx := doc.Index()
	if idx == nil {
		jsonError(w, "document has no hierarchy", http.StatusNotFound)
		return nil, nil, false
	}
	return doc, idx, true
}

// handlePutHierarchy replaces a document's chapter tree.
func (s *Server) handlePutHierarchy(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	chapters, err := doctree.DecodeChapters(r.Body)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	idx, err := doctree.Build(chapters, doc.PageCount())
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc.SetIndex(idx)
	s.log.Info("hierarchy set", "doc_id", doc.ID, "nodes", len(idx.Nodes()))

	writeJSON(w, http.StatusOK, map[string]any{
		"pages_with_content": idx.PagesWithContent(),
		"nodes":              idx.Nodes(),
	})
}

func (s *Server) handleGetHierarchy(w http.ResponseWriter, r *http.Request) {
	_, idx, ok := s.indexedDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"chapters":           idx.Chapters(),
		"pages_with_content": idx.PagesWithContent(),
	})
}

// handleHierarchyPage returns the chapters, topics and sub-topics anchored
// on one page.
func (s *Server) handleHierarchyPage(w http.ResponseWriter, r *http.Request) {
	doc, idx, ok := s.indexedDocument(w, r)
	if !ok {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil || page < 1 || page > doc.PageCount() {
		jsonError(w, fmt.Sprintf("page must be between 1 and %d", doc.PageCount()), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, idx.SelectByPage(page))
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	doc, idx, ok := s.indexedDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"picked": nonNil(idx.Resolve(doc.Picked))})
}

// handleToggleSelection flips each named node in or out of the selection.
func (s *Server) handleToggleSelection(w http.ResponseWriter, r *http.Request) {
	doc, idx, ok := s.indexedDocument(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if err := s.decodeBody(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, p := range req.Paths {
		if _, ok := idx.Lookup(p); !ok {
			jsonError(w, fmt.Sprintf("unknown node %q", p), http.StatusBadRequest)
			return
		}
	}
	for _, p := range req.Paths {
		doc.Picked.Toggle(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"picked": nonNil(idx.Resolve(doc.Picked))})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	doc.Picked.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(refs []doctree.Ref) []doctree.Ref {
	if refs == nil {
		return []doctree.Ref{}
	}
	return refs
}
