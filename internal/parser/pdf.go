package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const pdftotextTimeout = 30 * time.Second

// pdftotextBin is the fallback extractor binary; tests point it elsewhere.
var pdftotextBin = "pdftotext"

// pdfDocument reads fragments from a PDF spooled to a temp file.
// ledongthuc/pdf wants a ReaderAt+size and is happiest with a real file.
type pdfDocument struct {
	path   string
	file   *os.File
	reader *pdflib.Reader
}

// openPDF tries the Go library first, then falls back to pdftotext if
// enabled and available.
func openPDF(data []byte, opts Options) (Document, error) {
	tmp, err := os.CreateTemp("", "quizdoc-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := openPDFFile(tmpPath)
	if err != nil && opts.FallbackPdftotext {
		fb, fbErr := pdftotextDocument(tmpPath, opts)
		if fbErr == nil {
			os.Remove(tmpPath)
			return fb, nil
		}
		err = errors.Join(err, fbErr)
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	if opts.StrictPDF {
		if err := checkPageCount(data, doc.NumPages()); err != nil {
			doc.Close()
			return nil, err
		}
	}
	return doc, nil
}

func openPDFFile(path string) (doc *pdfDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	return &pdfDocument{path: path, file: f, reader: reader}, nil
}

// checkPageCount cross-checks the page count with pdfcpu, which validates
// the xref table and page tree more strictly.
func checkPageCount(data []byte, got int) error {
	want, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return fmt.Errorf("validate pdf: %w", err)
	}
	if want != got {
		return fmt.Errorf("validate pdf: page tree has %d pages, reader found %d", want, got)
	}
	return nil
}

func (d *pdfDocument) NumPages() int { return d.reader.NumPage() }

func (d *pdfDocument) Fragments(page int) (frags []Fragment, err error) {
	if page < 1 || page > d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", page, d.reader.NumPage())
	}
	defer func() {
		if r := recover(); r != nil {
			frags, err = nil, fmt.Errorf("decode page content: %v", r)
		}
	}()

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return nil, nil
	}
	height := pageHeight(p.V)
	return mergeRuns(p.Content().Text, height), nil
}

func (d *pdfDocument) Close() error {
	err := d.file.Close()
	if rmErr := os.Remove(d.path); err == nil {
		err = rmErr
	}
	return err
}

// pageHeight reads the MediaBox height, walking up the page tree since the
// box is inheritable. A missing box falls back to US Letter.
func pageHeight(v pdflib.Value) float64 {
	for i := 0; i < 32 && !v.IsNull(); i++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			return math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
		}
		v = v.Key("Parent")
	}
	return 792
}

// mergeRuns joins glyph runs sharing a baseline into word-level fragments.
// PDF coordinates grow upward, so baselines are flipped against the page
// height.
func mergeRuns(runs []pdflib.Text, height float64) []Fragment {
	var (
		frags []Fragment
		cur   *Fragment
		buf   strings.Builder
		endX  float64
		curY  float64
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(buf.String())
		if cur.Text != "" {
			frags = append(frags, *cur)
		}
		cur = nil
		buf.Reset()
	}

	for _, t := range runs {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		if cur != nil {
			gap := math.Max(t.FontSize*0.25, 1)
			if math.Abs(t.Y-curY) < 0.5 && t.X-endX <= gap {
				buf.WriteString(t.S)
				endX = t.X + t.W
				continue
			}
			flush()
		}
		cur = &Fragment{X: t.X, Baseline: height - t.Y, FontSize: t.FontSize}
		curY = t.Y
		buf.WriteString(t.S)
		endX = t.X + t.W
	}
	flush()
	return frags
}

// pdftotextDocument shells out to poppler's pdftotext and lays each
// form-feed separated page out line by line. Empty pages are kept so page
// numbers match the source.
func pdftotextDocument(path string, opts Options) (Document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pdftotextTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, pdftotextBin, "-layout", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	raw := strings.Split(strings.TrimRight(string(out), "\f"), "\f")
	pages := make([][]Fragment, 0, len(raw))
	for _, text := range raw {
		var frags []Fragment
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			frags = append(frags, Fragment{
				Text:     strings.Join(strings.Fields(line), " "),
				Baseline: float64(len(frags)) * opts.LineHeight,
			})
		}
		pages = append(pages, frags)
	}
	return &pagedDocument{pages: pages}, nil
}
