package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Raw is a question as the analysis backend sends it. CorrectAnswer is a
// string, a list of strings (fill-blank) or an object of term to
// definition (matching).
type Raw struct {
	Question      string          `json:"question"`
	Options       []string        `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
	Type          string          `json:"type,omitempty"`
	PageNumber    int             `json:"page_number"`
	LineNumber    int             `json:"line_number"`
	Chapter       string          `json:"chapter"`
	Topic         string          `json:"topic"`
}

// Buckets holds generated questions grouped by kind.
type Buckets struct {
	MultipleChoice []Raw `json:"multiple_choice"`
	TrueFalse      []Raw `json:"true_false"`
	FillBlank      []Raw `json:"fill_blank"`
	Matching       []Raw `json:"matching"`
	ShortAnswer    []Raw `json:"short_answer"`
}

// Bucket returns the questions of one kind.
func (b Buckets) Bucket(k Kind) []Raw {
	switch k {
	case MultipleChoice:
		return b.MultipleChoice
	case TrueFalse:
		return b.TrueFalse
	case FillBlank:
		return b.FillBlank
	case Matching:
		return b.Matching
	case ShortAnswer:
		return b.ShortAnswer
	}
	return nil
}

func (b *Buckets) add(k Kind, r Raw) {
	switch k {
	case MultipleChoice:
		b.MultipleChoice = append(b.MultipleChoice, r)
	case TrueFalse:
		b.TrueFalse = append(b.TrueFalse, r)
	case FillBlank:
		b.FillBlank = append(b.FillBlank, r)
	case Matching:
		b.Matching = append(b.Matching, r)
	case ShortAnswer:
		b.ShortAnswer = append(b.ShortAnswer, r)
	}
}

// Len returns the total number of questions.
func (b Buckets) Len() int {
	n := 0
	for _, k := range Kinds {
		n += len(b.Bucket(k))
	}
	return n
}

// FromBuckets builds question instances in kind order. Each id is the kind
// plus the question's index in its bucket, so the same buckets always give
// the same ids.
func FromBuckets(b Buckets) ([]Question, error) {
	questions := make([]Question, 0, b.Len())
	for _, k := range Kinds {
		for i, r := range b.Bucket(k) {
			correct, err := DecodeAnswer(k, r.CorrectAnswer)
			if err != nil {
				return nil, fmt.Errorf("%s question %d: %w", k, i, err)
			}
			questions = append(questions, Question{
				ID:          questionID(k, i),
				Kind:        k,
				Prompt:      strings.TrimSpace(r.Question),
				Options:     r.Options,
				Correct:     correct,
				Explanation: r.Explanation,
				Locator: Locator{
					PageNumber: r.PageNumber,
					LineNumber: r.LineNumber,
					Chapter:    r.Chapter,
					Topic:      r.Topic,
				},
			})
		}
	}
	return questions, nil
}

// Bucketize groups a flat list by each question's type field.
func Bucketize(raws []Raw) (Buckets, error) {
	var b Buckets
	for i, r := range raws {
		k, ok := ParseKind(r.Type)
		if !ok {
			return Buckets{}, fmt.Errorf("question %d: unknown type %q", i, r.Type)
		}
		b.add(k, r)
	}
	return b, nil
}

// FromFlat buckets a flat question list by type, then builds instances.
func FromFlat(raws []Raw) ([]Question, error) {
	b, err := Bucketize(raws)
	if err != nil {
		return nil, err
	}
	return FromBuckets(b)
}

// DecodeAnswer parses a JSON value into the answer shape kind k expects.
// Fill-blank accepts a single string as one blank. True/false accepts a
// JSON boolean.
func DecodeAnswer(k Kind, raw json.RawMessage) (Answer, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("missing answer")
	}

	switch shapeFor(k) {
	case "blanks":
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			if len(list) == 0 {
				return nil, fmt.Errorf("no blanks")
			}
			return BlankAnswer(list), nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("fill_blank answer must be a string or list of strings")
		}
		return BlankAnswer{s}, nil

	case "matches":
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err == nil {
			if len(m) == 0 {
				return nil, fmt.Errorf("no pairs")
			}
			return MatchAnswer(m), nil
		}
		var pairs []struct {
			Term       string `json:"term"`
			Definition string `json:"definition"`
		}
		if err := json.Unmarshal(raw, &pairs); err != nil || len(pairs) == 0 {
			return nil, fmt.Errorf("matching answer must be an object of term to definition")
		}
		m = make(map[string]string, len(pairs))
		for _, p := range pairs {
			m[p.Term] = p.Definition
		}
		return MatchAnswer(m), nil

	default:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return TextAnswer(s), nil
		}
		if k == TrueFalse {
			var b bool
			if err := json.Unmarshal(raw, &b); err == nil {
				return TextAnswer(strconv.FormatBool(b)), nil
			}
		}
		return nil, fmt.Errorf("%s answer must be a string", k)
	}
}
