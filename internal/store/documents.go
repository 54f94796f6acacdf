// Package store keeps documents, quiz sessions, raw uploads and quiz
// results.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dgallion1/quizdoc/internal/doctree"
	"github.com/dgallion1/quizdoc/internal/parser"
	"github.com/dgallion1/quizdoc/internal/upload"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Document is an extracted document with its hierarchy and selection.
type Document struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Size        int64         `json:"size"`
	ContentType string        `json:"content_type"`
	BlobKey     string        `json:"blob_key"`
	CreatedAt   time.Time     `json:"created_at"`
	Pages       []parser.Page `json:"-"`

	// Picked is the selection of hierarchy nodes for quiz generation.
	Picked *doctree.Picked `json:"-"`
	// Uploader runs chunked uploads of this document to the backend.
	Uploader *upload.Manager `json:"-"`

	mu     sync.RWMutex
	index  *doctree.Index
	remote *upload.Result
}

// PageCount returns the number of extracted pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// Page returns page n (1-based).
func (d *Document) Page(n int) (parser.Page, error) {
	if n < 1 || n > len(d.Pages) {
		return parser.Page{}, fmt.Errorf("page %d: %w", n, ErrNotFound)
	}
	return d.Pages[n-1], nil
}

// Index returns the hierarchy index, or nil before one is set.
func (d *Document) Index() *doctree.Index {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.index
}

// SetIndex replaces the hierarchy index and clears the selection, which
// refers to paths of the old tree.
func (d *Document) SetIndex(idx *doctree.Index) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index = idx
	d.Picked.Clear()
}

// Remote returns the result of the last completed remote upload.
func (d *Document) Remote() (upload.Result, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.remote == nil {
		return upload.Result{}, false
	}
	return *d.remote, true
}

// SetRemote records a completed remote upload.
func (d *Document) SetRemote(r upload.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.remote = &r
}

// Documents is a bounded registry of documents. The least recently used
// document is evicted when full.
type Documents struct {
	cache *lru.Cache[string, *Document]
}

// NewDocuments creates a registry holding up to size documents. onEvict, if
// set, runs for every evicted or removed document.
func NewDocuments(size int, onEvict func(*Document)) (*Documents, error) {
	cache, err := lru.NewWithEvict[string, *Document](size, func(_ string, d *Document) {
		if onEvict != nil {
			onEvict(d)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create document cache: %w", err)
	}
	return &Documents{cache: cache}, nil
}

// Put adds or replaces a document. Picked is initialized when nil.
func (s *Documents) Put(d *Document) {
	if d.Picked == nil {
		d.Picked = doctree.NewPicked()
	}
	s.cache.Add(d.ID, d)
}

// Get returns a document by id.
func (s *Documents) Get(id string) (*Document, error) {
	d, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return d, nil
}

// Delete removes a document.
func (s *Documents) Delete(id string) error {
	if !s.cache.Remove(id) {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns all documents, oldest first.
func (s *Documents) List() []*Document {
	docs := s.cache.Values()
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs
}

// Len returns the number of documents held.
func (s *Documents) Len() int { return s.cache.Len() }
