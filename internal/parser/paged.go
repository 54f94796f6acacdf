package parser

import (
	"fmt"
	"strings"
)

// pagedDocument holds fragments for formats that have no native pages.
type pagedDocument struct {
	pages [][]Fragment
}

func (d *pagedDocument) NumPages() int { return len(d.pages) }

func (d *pagedDocument) Fragments(page int) ([]Fragment, error) {
	if page < 1 || page > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, len(d.pages))
	}
	return d.pages[page-1], nil
}

func (d *pagedDocument) Close() error { return nil }

// paginator lays text lines out on synthetic pages. Each line becomes one
// fragment whose baseline is its row times the line height.
type paginator struct {
	lineHeight float64
	perPage    int
	pages      [][]Fragment
	current    []Fragment
}

func newPaginator(opts Options) *paginator {
	return &paginator{lineHeight: opts.LineHeight, perPage: opts.LinesPerPage}
}

// add appends a non-blank line, starting a new page when the current one is full.
func (p *paginator) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(p.current) >= p.perPage {
		p.pageBreak()
	}
	p.current = append(p.current, Fragment{
		Text:     line,
		Baseline: float64(len(p.current)) * p.lineHeight,
	})
}

// addBlock adds each line of a multi-line block.
func (p *paginator) addBlock(text string) {
	for _, line := range strings.Split(text, "\n") {
		p.add(line)
	}
}

// pageBreak closes the current page. Empty pages are not emitted.
func (p *paginator) pageBreak() {
	if len(p.current) == 0 {
		return
	}
	p.pages = append(p.pages, p.current)
	p.current = nil
}

func (p *paginator) document() *pagedDocument {
	p.pageBreak()
	return &pagedDocument{pages: p.pages}
}
