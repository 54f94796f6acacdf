package quiz

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownQuestion is returned when an answer names a question that is not
// part of the quiz.
var ErrUnknownQuestion = errors.New("unknown question")

// ShapeError is returned when an answer does not fit the question kind.
type ShapeError struct {
	QuestionID string
	Kind       Kind
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("answer for %s does not fit a %s question", e.QuestionID, e.Kind)
}

// Session is one quiz being taken. It is safe for concurrent use.
type Session struct {
	ID         string
	DocumentID string
	CreatedAt  time.Time

	mu        sync.Mutex
	questions []Question
	byID      map[string]int
	answers   AnswerRecord
	report    *ScoreReport
	attempts  int
}

// NewSession creates a session over questions. Ids must be unique.
func NewSession(id, documentID string, questions []Question) (*Session, error) {
	byID := make(map[string]int, len(questions))
	for i, q := range questions {
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %q", q.ID)
		}
		byID[q.ID] = i
	}
	qs := make([]Question, len(questions))
	copy(qs, questions)
	return &Session{
		ID:         id,
		DocumentID: documentID,
		CreatedAt:  time.Now(),
		questions:  qs,
		byID:       byID,
		answers:    make(AnswerRecord),
	}, nil
}

// Questions returns the quiz questions in order.
func (s *Session) Questions() []Question {
	out := make([]Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// Question looks up one question by id.
func (s *Session) Question(id string) (Question, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Question{}, false
	}
	return s.questions[i], true
}

// SetAnswer records the user's answer for one question, replacing any
// earlier one. A new answer invalidates the last score report.
func (s *Session) SetAnswer(id string, a Answer) error {
	q, ok := s.Question(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, id)
	}
	if a == nil || !fitsKind(q.Kind, a) {
		return &ShapeError{QuestionID: id, Kind: q.Kind}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[id] = a
	s.report = nil
	return nil
}

func fitsKind(k Kind, a Answer) bool {
	if k == FillBlank {
		// One text answer fills a single blank.
		if _, ok := a.(TextAnswer); ok {
			return true
		}
	}
	return a.shape() == shapeFor(k)
}

// Answers returns a copy of the answer record.
func (s *Session) Answers() AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(AnswerRecord, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Submit scores the current answers and keeps the report.
func (s *Session) Submit() ScoreReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Score(s.questions, s.answers)
	s.report = &r
	return r
}

// Report returns the last submitted score, if any.
func (s *Session) Report() (ScoreReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return ScoreReport{}, false
	}
	return *s.report, true
}

// Retry clears all answers and the last report so the quiz can be taken
// again.
func (s *Session) Retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = make(AnswerRecord)
	s.report = nil
	s.attempts++
}

// Attempts returns how many times the quiz was retried.
func (s *Session) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}
