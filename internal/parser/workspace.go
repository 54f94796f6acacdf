package parser

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
)

// Workspace owns the current document. Loading a new one releases the
// previous document first so parser resources (temp files, open handles)
// never pile up.
type Workspace struct {
	mu    sync.Mutex
	opts  Options
	open  func(data []byte, filename string, opts Options) (Document, error)
	doc   Document
	name  string
	pages []Page
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(opts Options) *Workspace {
	return &Workspace{
		opts: opts,
		open: func(data []byte, filename string, opts Options) (Document, error) {
			return Open(bytes.NewReader(data), filename, opts)
		},
	}
}

// Load closes the current document, then opens and extracts the new one.
// On failure the workspace is left empty.
func (w *Workspace) Load(data []byte, filename string) ([]Page, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev := w.name
	if err := w.release(); err != nil {
		return nil, fmt.Errorf("release %s: %w", prev, err)
	}

	doc, err := w.open(data, filename, w.opts)
	if err != nil {
		return nil, err
	}
	pages, err := Extract(doc, w.opts)
	if err != nil {
		doc.Close()
		var ee *ExtractionError
		if errors.As(err, &ee) && ee.File == "" {
			ee.File = filename
		}
		return nil, err
	}

	w.doc, w.name, w.pages = doc, filename, pages
	return pages, nil
}

// Name returns the current document's filename, or "" when empty.
func (w *Workspace) Name() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.name
}

// Pages returns the pages of the current document.
func (w *Workspace) Pages() []Page {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Page, len(w.pages))
	copy(out, w.pages)
	return out
}

// Close releases the current document. Closing an empty workspace is a no-op.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.release()
}

func (w *Workspace) release() error {
	if w.doc == nil {
		return nil
	}
	err := w.doc.Close()
	w.doc, w.name, w.pages = nil, "", nil
	return err
}
