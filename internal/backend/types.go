// Package backend is the HTTP client of the remote analysis service.
package backend

import (
	"github.com/dgallion1/quizdoc/internal/parser"
	"github.com/dgallion1/quizdoc/internal/quiz"
)

// Part is one chunk of a chunked upload.
type Part struct {
	SessionID   string
	FileName    string
	ChunkIndex  int
	TotalChunks int
	Data        []byte
}

// FinalizeRequest asks the backend to assemble an uploaded file.
type FinalizeRequest struct {
	SessionID   string
	FileName    string
	TotalChunks int
}

// FinalizeResponse carries either a file id, to fetch the analysis later,
// or the finished analysis.
type FinalizeResponse struct {
	FileID   string            `json:"file_id,omitempty"`
	Analysis *AnalysisResponse `json:"analysis,omitempty"`
}

// Topic is a topic the backend found in the document.
type Topic struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	PageNumber int     `json:"page_number"`
	LineNumber int     `json:"line_number"`
}

// Chapter is a chapter the backend found in the document.
type Chapter struct {
	Number     int     `json:"number"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	PageNumber int     `json:"page_number"`
	LineNumber int     `json:"line_number"`
}

// AnalysisResponse is the result of analyzing a document or a set of pages.
type AnalysisResponse struct {
	Topics    []Topic    `json:"topics"`
	Chapters  []Chapter  `json:"chapters"`
	Questions []quiz.Raw `json:"questions"`
}

// Merge appends the findings of other, keeping order.
func (a *AnalysisResponse) Merge(other *AnalysisResponse) {
	if other == nil {
		return
	}
	a.Topics = append(a.Topics, other.Topics...)
	a.Chapters = append(a.Chapters, other.Chapters...)
	a.Questions = append(a.Questions, other.Questions...)
}

// AnalyzeRequest is the body of POST /pdf/analyze-pages.
type AnalyzeRequest struct {
	Pages []parser.Page `json:"pages"`
}

// QuizRequest is the body of POST /pdf/generate-quiz. Chapter and
// PageNumbers narrow what the questions are about.
type QuizRequest struct {
	Pages       []parser.Page `json:"pages"`
	Chapter     string        `json:"chapter,omitempty"`
	PageNumbers []int         `json:"page_numbers,omitempty"`
}
