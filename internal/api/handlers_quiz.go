package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/quizdoc/internal/backend"
	"github.com/dgallion1/quizdoc/internal/chunker"
	"github.com/dgallion1/quizdoc/internal/doctree"
	"github.com/dgallion1/quizdoc/internal/parser"
	"github.com/dgallion1/quizdoc/internal/quiz"
	"github.com/dgallion1/quizdoc/internal/store"
)

// maxAnalyzeBatches bounds concurrent analyze-pages calls per request.
const maxAnalyzeBatches = 4

type analyzeRequest struct {
	Pages []int `json:"pages" validate:"required,min=1,dive,gte=1"`
}

type quizRequest struct {
	Pages   []int  `json:"pages" validate:"omitempty,dive,gte=1"`
	Chapter string `json:"chapter" validate:"max=500"`
}

type answerRequest struct {
	Answer json.RawMessage `json:"answer" validate:"required"`
}

// selectPages returns the requested pages in the order given. Duplicate
// and out-of-range numbers are rejected.
func selectPages(doc *store.Document, numbers []int) ([]parser.Page, error) {
	seen := make(map[int]bool, len(numbers))
	pages := make([]parser.Page, 0, len(numbers))
	for _, n := range numbers {
		if seen[n] {
			return nil, fmt.Errorf("page %d selected twice", n)
		}
		seen[n] = true
		p, err := doc.Page(n)
		if err != nil {
			return nil, fmt.Errorf("page %d is out of range (1-%d)", n, doc.PageCount())
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// handleAnalyze sends the selected pages for analysis in token-bounded
// batches and starts a quiz from the questions that come back.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req analyzeRequest
	if err := s.decodeBody(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	pages, err := selectPages(doc, req.Pages)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	analysis, err := s.analyzeBatches(r.Context(), chunker.BatchPages(pages, s.cfg.MaxBatchTokens))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	valid, dropped := backend.FilterQuestions(analysis.Questions)
	questions, err := quiz.FromFlat(valid)
	if err != nil {
		s.writeError(w, r, &backend.AnalysisError{Op: "analyze-pages", Message: "malformed questions", Err: err})
		return
	}
	sess, err := s.startQuiz(doc.ID, questions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("pages analyzed", "doc_id", doc.ID, "pages", len(pages), "questions", len(questions), "dropped", dropped)

	writeJSON(w, http.StatusCreated, map[string]any{
		"quiz_id":   sess.ID,
		"topics":    analysis.Topics,
		"chapters":  analysis.Chapters,
		"questions": len(questions),
		"dropped":   dropped,
	})
}

// analyzeBatches analyzes each batch concurrently and merges the results in
// batch order.
func (s *Server) analyzeBatches(ctx context.Context, batches [][]parser.Page) (*backend.AnalysisResponse, error) {
	results := make([]*backend.AnalysisResponse, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxAnalyzeBatches)
	for i, batch := range batches {
		g.Go(func() error {
			res, err := s.backend.AnalyzePages(gctx, backend.AnalyzeRequest{Pages: batch})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	merged := &backend.AnalysisResponse{}
	for _, res := range results {
		merged.Merge(res)
	}
	return merged, nil
}

// handleGenerateQuiz asks for a quiz about the given pages. Without pages
// the document's picked hierarchy nodes decide which pages and chapter the
// quiz covers.
func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Get(chi.URLParam(r, "docID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req quizRequest
	if err := s.decodeBody(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	numbers, chapter := req.Pages, req.Chapter
	if len(numbers) == 0 {
		numbers, chapter = pickedScope(doc, chapter)
	}
	if len(numbers) == 0 {
		jsonError(w, "no pages given and nothing picked", http.StatusBadRequest)
		return
	}
	pages, err := selectPages(doc, numbers)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	buckets, err := s.backend.GenerateQuiz(r.Context(), backend.QuizRequest{
		Pages:       pages,
		Chapter:     chapter,
		PageNumbers: numbers,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	valid, dropped := backend.FilterBuckets(buckets)
	questions, err := quiz.FromBuckets(valid)
	if err != nil {
		s.writeError(w, r, &backend.AnalysisError{Op: "generate-quiz", Message: "malformed questions", Err: err})
		return
	}
	sess, err := s.startQuiz(doc.ID, questions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("quiz generated", "doc_id", doc.ID, "quiz_id", sess.ID, "questions", len(questions), "dropped", dropped)

	writeJSON(w, http.StatusCreated, map[string]any{
		"quiz_id":   sess.ID,
		"questions": len(questions),
		"dropped":   dropped,
	})
}

// pickedScope derives pages from the picked nodes. The first picked chapter
// names the quiz unless chapter is already set.
func pickedScope(doc *store.Document, chapter string) ([]int, string) {
	idx := doc.Index()
	if idx == nil {
		return nil, chapter
	}
	seen := make(map[int]bool)
	var pages []int
	for _, ref := range idx.Resolve(doc.Picked) {
		if chapter == "" && ref.Kind == doctree.KindChapter {
			chapter = ref.Title
		}
		if !seen[ref.PageNumber] {
			seen[ref.PageNumber] = true
			pages = append(pages, ref.PageNumber)
		}
	}
	sort.Ints(pages)
	return pages, chapter
}

func (s *Server) startQuiz(docID string, questions []quiz.Question) (*quiz.Session, error) {
	sess, err := quiz.NewSession(uuid.NewString(), docID, questions)
	if err != nil {
		return nil, err
	}
	s.quizzes.Put(sess)
	return sess, nil
}

type questionView struct {
	ID          string       `json:"id"`
	Kind        quiz.Kind    `json:"kind"`
	Prompt      string       `json:"prompt"`
	Options     []string     `json:"options,omitempty"`
	Locator     quiz.Locator `json:"locator"`
	Answer      quiz.Answer  `json:"answer,omitempty"`
	Correct     quiz.Answer  `json:"correct_answer,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
	IsCorrect   *bool        `json:"is_correct,omitempty"`
}

// viewQuiz renders a session. Correct answers and explanations are only
// shown once the quiz has been submitted.
func viewQuiz(sess *quiz.Session) map[string]any {
	answers := sess.Answers()
	report, submitted := sess.Report()
	qs := sess.Questions()
	views := make([]questionView, len(qs))
	for i, q := range qs {
		v := questionView{
			ID:      q.ID,
			Kind:    q.Kind,
			Prompt:  q.Prompt,
			Options: q.Options,
			Locator: q.Locator,
			Answer:  answers[q.ID],
		}
		if submitted {
			ok := q.IsCorrect(answers[q.ID])
			v.Correct = q.Correct
			v.Explanation = q.Explanation
			v.IsCorrect = &ok
		}
		views[i] = v
	}
	out := map[string]any{
		"id":          sess.ID,
		"document_id": sess.DocumentID,
		"created_at":  sess.CreatedAt,
		"attempts":    sess.Attempts(),
		"questions":   views,
	}
	if submitted {
		out["report"] = report
	}
	return out
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	sess, err := s.quizzes.Get(chi.URLParam(r, "quizID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewQuiz(sess))
}

// handleAnswer records the answer to one question. The body's answer is a
// string, a list of blanks or an object of term to definition, matching the
// question kind.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	sess, err := s.quizzes.Get(chi.URLParam(r, "quizID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "questionID")
	q, ok := sess.Question(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s", quiz.ErrUnknownQuestion, id))
		return
	}
	var req answerRequest
	if err := s.decodeBody(r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	answer, err := quiz.DecodeAnswer(q.Kind, req.Answer)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.SetAnswer(id, answer); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit scores the quiz and records the attempt.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.quizzes.Get(chi.URLParam(r, "quizID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report := sess.Submit()

	answers := sess.Answers()
	formatted := make(map[string]string, len(answers))
	for id, a := range answers {
		formatted[id] = quiz.FormatAnswer(a)
	}
	result := store.Result{
		ID:          uuid.New(),
		QuizID:      sess.ID,
		DocumentID:  sess.DocumentID,
		Attempt:     sess.Attempts() + 1,
		Correct:     report.Correct,
		Total:       report.Total,
		Percentage:  report.Percentage,
		Answers:     formatted,
		SubmittedAt: time.Now(),
	}
	if err := s.results.SaveResult(r.Context(), result); err != nil {
		s.log.Error("save result failed", "quiz_id", sess.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, report)
}

// handleRetry clears the answers so the quiz can be taken again.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, err := s.quizzes.Get(chi.URLParam(r, "quizID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.Retry()
	writeJSON(w, http.StatusOK, map[string]int{"attempts": sess.Attempts()})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "quizID")
	list, err := s.results.ListResults(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []store.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": list})
}

// handleExport downloads the quiz with the current answers as CSV.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.quizzes.Get(chi.URLParam(r, "quizID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="quiz-%s.csv"`, sess.ID))
	if err := quiz.WriteCSV(w, sess.Questions(), sess.Answers()); err != nil {
		s.log.Error("csv export failed", "quiz_id", sess.ID, "error", err)
	}
}
