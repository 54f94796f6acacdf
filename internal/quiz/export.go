package quiz

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportHeader is the first row of a results export.
var ExportHeader = []string{
	"Question", "Your Answer", "Correct Answer", "Result", "Explanation",
	"Chapter", "Topic", "Page", "Line",
}

// ExportRows renders one row per question followed by a summary row
// carrying the score percentage. The header is not included.
func ExportRows(questions []Question, answers AnswerRecord) [][]string {
	rows := make([][]string, 0, len(questions)+1)
	for _, q := range questions {
		result := "Incorrect"
		if q.IsCorrect(answers[q.ID]) {
			result = "Correct"
		}
		rows = append(rows, []string{
			q.Prompt,
			FormatAnswer(answers[q.ID]),
			FormatAnswer(q.Correct),
			result,
			q.Explanation,
			q.Locator.Chapter,
			q.Locator.Topic,
			strconv.Itoa(q.Locator.PageNumber),
			strconv.Itoa(q.Locator.LineNumber),
		})
	}

	report := Score(questions, answers)
	summary := make([]string, len(ExportHeader))
	summary[3] = fmt.Sprintf("Score: %.1f%%", report.Percentage)
	return append(rows, summary)
}

// WriteCSV writes the header, the question rows and the summary row.
func WriteCSV(w io.Writer, questions []Question, answers AnswerRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(ExportRows(questions, answers)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
