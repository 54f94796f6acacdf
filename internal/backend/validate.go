package backend

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dgallion1/quizdoc/internal/quiz"
)

var validate = validator.New()

// ValidateQuestion checks the shape of a generated question of kind k. The
// wording is never screened. Returns true if valid. Negative locators are
// clamped to 0.
func ValidateQuestion(k quiz.Kind, q *quiz.Raw) bool {
	if q == nil {
		return false
	}
	if validate.Var(strings.TrimSpace(q.Question), "min=3,max=1000") != nil {
		return false
	}
	correct, err := quiz.DecodeAnswer(k, q.CorrectAnswer)
	if err != nil {
		return false
	}

	switch k {
	case quiz.MultipleChoice:
		if validate.Var(q.Options, "min=2") != nil || !hasOption(q.Options, string(correct.(quiz.TextAnswer))) {
			return false
		}
	case quiz.TrueFalse:
		v := strings.ToLower(strings.TrimSpace(string(correct.(quiz.TextAnswer))))
		if validate.Var(v, "oneof=true false") != nil {
			return false
		}
	case quiz.ShortAnswer:
		if strings.TrimSpace(string(correct.(quiz.TextAnswer))) == "" {
			return false
		}
	}

	if q.PageNumber < 0 {
		q.PageNumber = 0
	}
	if q.LineNumber < 0 {
		q.LineNumber = 0
	}
	return true
}

func hasOption(options []string, answer string) bool {
	answer = strings.ToLower(strings.TrimSpace(answer))
	for _, o := range options {
		if strings.ToLower(strings.TrimSpace(o)) == answer {
			return true
		}
	}
	return false
}

// FilterBuckets drops invalid questions from every bucket and returns how
// many were dropped.
func FilterBuckets(b quiz.Buckets) (quiz.Buckets, int) {
	var out quiz.Buckets
	dropped := 0
	keep := func(k quiz.Kind, in []quiz.Raw) []quiz.Raw {
		var kept []quiz.Raw
		for _, q := range in {
			if ValidateQuestion(k, &q) {
				kept = append(kept, q)
			} else {
				dropped++
			}
		}
		return kept
	}
	out.MultipleChoice = keep(quiz.MultipleChoice, b.MultipleChoice)
	out.TrueFalse = keep(quiz.TrueFalse, b.TrueFalse)
	out.FillBlank = keep(quiz.FillBlank, b.FillBlank)
	out.Matching = keep(quiz.Matching, b.Matching)
	out.ShortAnswer = keep(quiz.ShortAnswer, b.ShortAnswer)
	return out, dropped
}

// FilterQuestions drops invalid or untyped questions from a flat list and
// returns how many were dropped.
func FilterQuestions(in []quiz.Raw) ([]quiz.Raw, int) {
	var kept []quiz.Raw
	dropped := 0
	for _, q := range in {
		k, ok := quiz.ParseKind(q.Type)
		if ok && ValidateQuestion(k, &q) {
			kept = append(kept, q)
		} else {
			dropped++
		}
	}
	return kept, dropped
}
