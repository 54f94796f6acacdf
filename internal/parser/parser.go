package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// Fragment is one positioned run of text on a page. Baseline grows downward
// from the top of the page.
type Fragment struct {
	Text     string
	X        float64
	Baseline float64
	FontSize float64
}

// LineRange is the vertical span a fragment occupies.
type LineRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Page is the extracted text of one page. LineRanges holds one entry per
// fragment, in the same order the fragments appear in Text.
type Page struct {
	PageNumber int         `json:"page_number"`
	Text       string      `json:"text"`
	LineRanges []LineRange `json:"line_numbers"`
}

// Document is an opened source that yields positioned fragments per page.
// Page numbers are 1-based.
type Document interface {
	NumPages() int
	Fragments(page int) ([]Fragment, error)
	Close() error
}

// Options controls extraction.
type Options struct {
	LineHeight        float64 // Height of one line range.
	LinesPerPage      int     // Pagination for formats without native pages.
	StrictPDF         bool    // Cross-check PDF page counts with pdfcpu.
	FallbackPdftotext bool    // Try pdftotext when the PDF library cannot open a file.
}

func (o Options) withDefaults() Options {
	if o.LineHeight <= 0 {
		o.LineHeight = 12
	}
	if o.LinesPerPage <= 0 {
		o.LinesPerPage = 40
	}
	return o
}

// opener builds a Document from raw bytes.
type opener func(data []byte, opts Options) (Document, error)

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// forFile returns the opener for a filename.
func forFile(filename string) (opener, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return openText, nil
	case ".md", ".markdown":
		return openMarkdown, nil
	case ".csv":
		return openCSV, nil
	case ".html", ".htm":
		return openHTML, nil
	case ".pdf":
		return openPDF, nil
	case ".docx":
		return openDOCX, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Open reads r fully and opens it with the parser for filename's extension.
// The caller owns the returned Document and must Close it.
func Open(r io.Reader, filename string, opts Options) (Document, error) {
	open, err := forFile(filename)
	if err != nil {
		return nil, &ExtractionError{File: filename, Err: err}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ExtractionError{File: filename, Err: fmt.Errorf("read input: %w", err)}
	}
	doc, err := open(data, opts.withDefaults())
	if err != nil {
		return nil, &ExtractionError{File: filename, Err: err}
	}
	return doc, nil
}

// Extract turns an opened document into pages 1..N. Pages are read one after
// another. Within a page fragments are ordered by baseline, ties keeping
// document order, and joined with a single space.
func Extract(doc Document, opts Options) ([]Page, error) {
	opts = opts.withDefaults()
	n := doc.NumPages()
	if n <= 0 {
		return nil, &ExtractionError{Err: ErrNoPages}
	}

	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		frags, err := doc.Fragments(i)
		if err != nil {
			return nil, &ExtractionError{Page: i, Err: err}
		}
		pages = append(pages, buildPage(i, frags, opts.LineHeight))
	}
	return pages, nil
}

// ExtractBytes opens, extracts and closes in one call.
func ExtractBytes(data []byte, filename string, opts Options) ([]Page, error) {
	doc, err := Open(bytes.NewReader(data), filename, opts)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages, err := Extract(doc, opts)
	if err != nil {
		var ee *ExtractionError
		if errors.As(err, &ee) && ee.File == "" {
			ee.File = filename
		}
		return nil, err
	}
	return pages, nil
}

// buildPage joins fragment text in stream order. Line ranges are sorted by
// baseline so they stay non-decreasing even when the stream jumps back up the
// page, as it does between columns.
func buildPage(number int, frags []Fragment, lineHeight float64) Page {
	texts := make([]string, len(frags))
	ranges := make([]LineRange, len(frags))
	for i, f := range frags {
		texts[i] = f.Text
		ranges[i] = LineRange{Start: f.Baseline, End: f.Baseline + lineHeight}
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})
	return Page{
		PageNumber: number,
		Text:       strings.Join(texts, " "),
		LineRanges: ranges,
	}
}

// LineNumber returns the 1-based index of the line range containing y, or 0
// when no range does.
func (p Page) LineNumber(y float64) int {
	for i, r := range p.LineRanges {
		if y >= r.Start && y < r.End {
			return i + 1
		}
	}
	return 0
}
