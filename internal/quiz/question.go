// Package quiz holds generated questions, the user's answers and the scoring
// rules for each question kind.
package quiz

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is a question type.
type Kind string

const (
	MultipleChoice Kind = "multiple_choice"
	TrueFalse      Kind = "true_false"
	FillBlank      Kind = "fill_blank"
	Matching       Kind = "matching"
	ShortAnswer    Kind = "short_answer"
)

// Kinds lists every kind in bucket order.
var Kinds = []Kind{MultipleChoice, TrueFalse, FillBlank, Matching, ShortAnswer}

// ParseKind accepts the canonical names plus common spellings
// ("multiple-choice", "True False", "mcq").
func ParseKind(s string) (Kind, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_", "/", "_").Replace(norm)
	switch norm {
	case "multiple_choice", "mcq", "choice":
		return MultipleChoice, true
	case "true_false", "truefalse", "boolean":
		return TrueFalse, true
	case "fill_blank", "fill_in_the_blank", "fill_in_blank", "blank":
		return FillBlank, true
	case "matching", "match":
		return Matching, true
	case "short_answer", "short", "open":
		return ShortAnswer, true
	}
	return "", false
}

// Answer is a value shaped for one question kind: a TextAnswer, a
// BlankAnswer or a MatchAnswer. It is used both for the correct answer and
// for what the user submitted.
type Answer interface {
	shape() string
}

// TextAnswer answers multiple-choice, true/false and short-answer questions.
type TextAnswer string

// BlankAnswer holds one entry per blank, in order.
type BlankAnswer []string

// MatchAnswer maps each term to its definition.
type MatchAnswer map[string]string

func (TextAnswer) shape() string  { return "text" }
func (BlankAnswer) shape() string { return "blanks" }
func (MatchAnswer) shape() string { return "matches" }

// shapeFor is the answer shape a kind expects.
func shapeFor(k Kind) string {
	switch k {
	case FillBlank:
		return "blanks"
	case Matching:
		return "matches"
	default:
		return "text"
	}
}

// Locator cites where a question's source material lives.
type Locator struct {
	PageNumber int    `json:"page_number"`
	LineNumber int    `json:"line_number"`
	Chapter    string `json:"chapter"`
	Topic      string `json:"topic"`
}

// Question is one question instance of a quiz.
type Question struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options,omitempty"`
	Correct     Answer   `json:"correct_answer"`
	Explanation string   `json:"explanation"`
	Locator     Locator  `json:"locator"`
}

// questionID derives a stable id from the question's position in its bucket.
func questionID(k Kind, index int) string {
	return fmt.Sprintf("%s-%d", k, index)
}

// FormatAnswer renders an answer for display and export. Matches are
// listed in term order.
func FormatAnswer(a Answer) string {
	switch v := a.(type) {
	case nil:
		return ""
	case TextAnswer:
		return string(v)
	case BlankAnswer:
		return strings.Join(v, "; ")
	case MatchAnswer:
		terms := make([]string, 0, len(v))
		for t := range v {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		pairs := make([]string, len(terms))
		for i, t := range terms {
			pairs[i] = t + " = " + v[t]
		}
		return strings.Join(pairs, "; ")
	}
	return fmt.Sprint(a)
}
