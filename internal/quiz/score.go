package quiz

import "strings"

// AnswerRecord maps question ids to the user's answer.
type AnswerRecord map[string]Answer

// ScoreReport is the outcome of scoring one quiz attempt.
type ScoreReport struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// IsCorrect reports whether a is a correct answer to q. An answer whose
// shape does not fit the question kind is incorrect.
func (q Question) IsCorrect(a Answer) bool {
	if a == nil || q.Correct == nil {
		return false
	}
	switch q.Kind {
	case MultipleChoice, TrueFalse:
		return scoreExact(q.Correct, a)
	case FillBlank:
		return scoreBlanks(q.Correct, a)
	case Matching:
		return scoreMatching(q.Correct, a)
	case ShortAnswer:
		return scoreLenient(q.Correct, a)
	}
	return false
}

// Score counts correct answers. It only reads answers and gives the same
// report for the same input.
func Score(questions []Question, answers AnswerRecord) ScoreReport {
	r := ScoreReport{Total: len(questions)}
	for _, q := range questions {
		if q.IsCorrect(answers[q.ID]) {
			r.Correct++
		}
	}
	if r.Total > 0 {
		r.Percentage = float64(r.Correct) / float64(r.Total) * 100
	}
	return r
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// contains is lenient containment: either string contains the other.
// Empty strings never match.
func contains(want, got string) bool {
	want, got = normalize(want), normalize(got)
	if want == "" || got == "" {
		return false
	}
	return strings.Contains(want, got) || strings.Contains(got, want)
}

func scoreExact(correct, a Answer) bool {
	want, ok1 := correct.(TextAnswer)
	got, ok2 := a.(TextAnswer)
	if !ok1 || !ok2 {
		return false
	}
	return normalize(string(want)) == normalize(string(got))
}

func scoreLenient(correct, a Answer) bool {
	want, ok1 := correct.(TextAnswer)
	got, ok2 := a.(TextAnswer)
	if !ok1 || !ok2 {
		return false
	}
	return contains(string(want), string(got))
}

// scoreBlanks applies lenient containment per blank. A single text answer
// is accepted for a single-blank question.
func scoreBlanks(correct, a Answer) bool {
	want, ok := correct.(BlankAnswer)
	if !ok || len(want) == 0 {
		return false
	}
	var got BlankAnswer
	switch v := a.(type) {
	case BlankAnswer:
		got = v
	case TextAnswer:
		got = BlankAnswer{string(v)}
	default:
		return false
	}
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if !contains(want[i], got[i]) {
			return false
		}
	}
	return true
}

// scoreMatching requires the submitted pair set to equal the correct one.
// There is no per-pair credit.
func scoreMatching(correct, a Answer) bool {
	want, ok1 := correct.(MatchAnswer)
	got, ok2 := a.(MatchAnswer)
	if !ok1 || !ok2 || len(want) == 0 {
		return false
	}
	norm := func(m MatchAnswer) map[string]string {
		out := make(map[string]string, len(m))
		for k, v := range m {
			out[normalize(k)] = normalize(v)
		}
		return out
	}
	w, g := norm(want), norm(got)
	if len(w) != len(g) {
		return false
	}
	for k, v := range w {
		if gv, ok := g[k]; !ok || gv != v {
			return false
		}
	}
	return true
}
