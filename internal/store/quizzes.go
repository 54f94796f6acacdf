package store

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dgallion1/quizdoc/internal/quiz"
)

// Quizzes is a bounded registry of quiz sessions.
type Quizzes struct {
	cache *lru.Cache[string, *quiz.Session]
}

// NewQuizzes creates a registry holding up to size sessions.
func NewQuizzes(size int) (*Quizzes, error) {
	cache, err := lru.New[string, *quiz.Session](size)
	if err != nil {
		return nil, fmt.Errorf("create quiz cache: %w", err)
	}
	return &Quizzes{cache: cache}, nil
}

func (s *Quizzes) Put(q *quiz.Session) { s.cache.Add(q.ID, q) }

func (s *Quizzes) Get(id string) (*quiz.Session, error) {
	q, ok := s.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("quiz %s: %w", id, ErrNotFound)
	}
	return q, nil
}

// DeleteForDocument drops every quiz generated from a document.
func (s *Quizzes) DeleteForDocument(docID string) int {
	n := 0
	for _, q := range s.cache.Values() {
		if q.DocumentID == docID {
			s.cache.Remove(q.ID)
			n++
		}
	}
	return n
}
