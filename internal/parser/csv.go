package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// openCSV lays out one line per data row, each cell labelled with its header.
func openCSV(data []byte, opts Options) (Document, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	p := newPaginator(opts)
	if len(records) == 0 {
		return p.document(), nil
	}

	// First row is headers.
	headers := records[0]
	for _, row := range records[1:] {
		var line strings.Builder
		for j, cell := range row {
			if j > 0 {
				line.WriteString(", ")
			}
			if j < len(headers) {
				line.WriteString(headers[j] + ": " + cell)
			} else {
				line.WriteString(cell)
			}
		}
		p.add(line.String())
	}
	return p.document(), nil
}
